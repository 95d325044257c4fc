// Package ui serves read-only HTML reports of design runs.
package ui

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/report"
	"ciasx/models"
)

//go:embed templates/*
var embeddedFiles embed.FS

// ReportSource is what the report pages read from
type ReportSource interface {
	ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error)
	Analyze(ctx context.Context, id core.RunID) (*models.DesignRun, report.Analysis, error)
	Records(ctx context.Context, id core.RunID) ([]experiment.Record, error)
}

// Config holds UI application configuration
type Config struct {
	// Prefix is the path the app is mounted under, used for links
	Prefix string
}

// App represents the UI application
type App struct {
	router    *chi.Mux
	source    ReportSource
	templates *template.Template
	config    Config
	logger    *internal.Logger
}

// NewApp creates a new UI application
func NewApp(source ReportSource, config Config, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	templates, err := template.New("").ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		source:    source,
		templates: templates,
		config:    config,
		logger:    logger.With("ui"),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// Handler returns the app's HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleReport)
	a.router.Get("/runs/{id}/report.md", a.handleMarkdown)
	a.router.Get("/runs/{id}/report.xlsx", a.handleXLSX)
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.source.ListRuns(r.Context(), 100)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.renderTemplate(w, "runs.html", map[string]interface{}{
		"Runs":   runs,
		"Prefix": a.config.Prefix,
	})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	run, analysis, err := a.source.Analyze(r.Context(), core.RunID(chi.URLParam(r, "id")))
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(report.HTML(report.Markdown(run, analysis), run.Name))
}

func (a *App) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	run, analysis, err := a.source.Analyze(r.Context(), core.RunID(chi.URLParam(r, "id")))
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Markdown(run, analysis)))
}

func (a *App) handleXLSX(w http.ResponseWriter, r *http.Request) {
	id := core.RunID(chi.URLParam(r, "id"))
	_, analysis, err := a.source.Analyze(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	records, err := a.source.Records(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "run_"+string(id)+".xlsx"))
	if err := report.WriteXLSX(w, records, analysis.ParetoIDs); err != nil {
		a.logger.Error("failed to write workbook for run %s: %v", id, err)
	}
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) fail(w http.ResponseWriter, err error) {
	if stderrors.Is(err, core.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	a.logger.Error("report request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
