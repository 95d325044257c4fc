package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/adapters/executor"
	"ciasx/adapters/llm/heuristic"
	"ciasx/adapters/memory"
	"ciasx/app"
	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/planner"
	"ciasx/internal/scientist"
	"ciasx/models"
	"ciasx/ports"
)

func setupRouter(t *testing.T) (*gin.Engine, *memory.Repository, *SSEHub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewSSEHub(internal.Discard())
	t.Cleanup(hub.Close)

	repo := memory.NewRepository()
	svc := app.NewScientistService(repo,
		executor.NewSimulated(executor.Options{Seed: 1, Logger: internal.Discard()}),
		planner.New(heuristic.NewGenerator(), planner.WithLogger(internal.Discard())),
		app.ServiceOptions{
			Loop:        scientist.Options{Logger: internal.Discard()},
			RunObserver: func(id core.RunID) ports.LoopObserver { return hub.Observer(id) },
			Logger:      internal.Discard(),
		})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	RegisterRoutes(router, NewRunHandler(ctx, svc, internal.Discard()), hub)
	return router, repo, hub
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRunExecutesInBackground(t *testing.T) {
	router, repo, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/runs", map[string]any{"name": "api run", "budget": 4})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var created models.DesignRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.RunStatusInitializing, created.Status)

	require.Eventually(t, func() bool {
		run, err := repo.GetRun(context.Background(), created.ID)
		return err == nil && run.Status == models.RunStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w = doJSON(t, router, http.MethodGet, "/api/runs/"+string(created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run models.DesignRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 4, run.BudgetUsed)

	w = doJSON(t, router, http.MethodGet, "/api/runs/"+string(created.ID)+"/records", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Records []map[string]any `json:"records"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	_, err := experiment.RecordFromMap(body.Records[0])
	assert.NoError(t, err)

	w = doJSON(t, router, http.MethodGet, "/api/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestCreateRunRejectsInvalidRequests(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/runs", map[string]any{"budget": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = doJSON(t, router, http.MethodGet, "/api/runs?limit=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRunIs404(t *testing.T) {
	router, _, _ := setupRouter(t)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/runs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/runs/missing/records", nil).Code)
}

func TestHubDeliversRunEvents(t *testing.T) {
	hub := NewSSEHub(internal.Discard())
	defer hub.Close()

	ch, ok := hub.subscribe("run-1")
	require.True(t, ok)
	require.Eventually(t, func() bool { return hub.GetClientCount("run-1") == 1 }, time.Second, time.Millisecond)

	obs := hub.Observer("run-1")
	obs.OnRound(context.Background(), ports.RoundReport{Round: 2, Proposed: 3})
	hub.Broadcast(RunEvent{RunID: "other", EventType: EventRound})

	select {
	case event := <-ch:
		assert.Equal(t, EventRound, event.EventType)
		assert.Equal(t, 2, event.Cycle)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	hub.unsubscribe("run-1", ch)
	require.Eventually(t, func() bool { return hub.GetClientCount("run-1") == 0 }, time.Second, time.Millisecond)
}

func TestHubUnsubscribeWaitsForFullQueue(t *testing.T) {
	// no dispatcher goroutine, so the queue only drains when the test reads it
	hub := &SSEHub{
		clients:    make(map[core.RunID]map[chan RunEvent]bool),
		unregister: make(chan SSEClient, 1),
		done:       make(chan struct{}),
		logger:     internal.Discard(),
	}
	hub.unregister <- SSEClient{RunID: "filler"}

	ch := make(chan RunEvent)
	returned := make(chan struct{})
	go func() {
		hub.unsubscribe("run-1", ch)
		close(returned)
	}()

	isClosed := func() bool {
		select {
		case <-returned:
			return true
		default:
			return false
		}
	}
	assert.Never(t, isClosed, 50*time.Millisecond, 5*time.Millisecond)

	assert.Equal(t, core.RunID("filler"), (<-hub.unregister).RunID)
	got := <-hub.unregister
	assert.Equal(t, core.RunID("run-1"), got.RunID)
	assert.Equal(t, ch, got.Channel)
	require.Eventually(t, isClosed, time.Second, time.Millisecond)

	hub.unregister <- SSEClient{RunID: "filler"}
	close(hub.done)
	hub.unsubscribe("run-2", make(chan RunEvent))
}

func TestHubReleasesEveryClient(t *testing.T) {
	hub := NewSSEHub(internal.Discard())
	defer hub.Close()

	const clients = 64
	channels := make([]chan RunEvent, clients)
	for i := range channels {
		ch, ok := hub.subscribe("busy")
		require.True(t, ok)
		channels[i] = ch
	}
	require.Eventually(t, func() bool { return hub.GetClientCount("busy") == clients }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch chan RunEvent) {
			defer wg.Done()
			hub.unsubscribe("busy", ch)
		}(ch)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return hub.GetClientCount("busy") == 0 }, time.Second, time.Millisecond)
}
