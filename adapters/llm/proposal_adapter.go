package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ciasx/domain/core"
	"ciasx/internal"
	"ciasx/internal/errors"
	"ciasx/ports"
)

// SystemPrompt tells the model what shape of answer the parser accepts.
const SystemPrompt = "You design experiments for a snapshot compressive imaging research program. " +
	"Respond with only a JSON array. Each element is an object with the keys " +
	"recon_family, uq_scheme, forward_config, recon_params, uq_params and train_config."

// Config holds LLM adapter configuration
type Config struct {
	Model               string        // e.g., "gpt-4o-mini"
	APIKey              string        // OpenAI API key
	BaseURL             string        // Optional override
	Temperature         float64       // 0.0-2.0, lower = more deterministic
	MaxTokens           int           // Max tokens in response
	Timeout             time.Duration // Request timeout
	RequestsPerSecond   float64       // Client-side rate limit; <= 0 disables it
	FallbackToHeuristic bool          // Fallback to heuristic on error
}

// UsageRecorder receives the token usage of each completed call
type UsageRecorder interface {
	RecordUsage(ctx context.Context, operation string, usage *ports.UsageData)
}

// ProposalAdapter implements ports.ProposalGenerator on top of a chat model.
type ProposalAdapter struct {
	config   Config
	client   ports.LLMClient
	fallback ports.ProposalGenerator
	limiter  *rate.Limiter
	usage    UsageRecorder
	logger   *internal.Logger

	mu        sync.Mutex
	lastAudit ports.GenerationAudit
}

// NewProposalAdapter creates an adapter backed by the OpenAI API
func NewProposalAdapter(config Config, fallback ports.ProposalGenerator, logger *internal.Logger) (*ProposalAdapter, error) {
	client, err := NewOpenAIClient(config.APIKey, config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewProposalAdapterWithClient(config, client, fallback, logger), nil
}

// NewProposalAdapterWithClient creates an adapter over any LLM client
func NewProposalAdapterWithClient(config Config, client ports.LLMClient, fallback ports.ProposalGenerator, logger *internal.Logger) *ProposalAdapter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	return &ProposalAdapter{
		config:   config,
		client:   client,
		fallback: fallback,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With("llm"),
	}
}

// Generate sends the prompt to the model and parses the proposals. Transport
// and parse failures fall back to the heuristic generator when configured,
// and otherwise surface as PROPOSAL_FAILED.
func (g *ProposalAdapter) Generate(ctx context.Context, prompt string) ([]ports.RawProposal, error) {
	audit := ports.GenerationAudit{
		GeneratorType: "llm",
		Model:         g.config.Model,
		Temperature:   g.config.Temperature,
		MaxTokens:     g.config.MaxTokens,
		PromptHash:    core.NewHash([]byte(prompt)),
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	resp, err := g.client.ChatCompletion(callCtx, ports.LLMRequest{
		Model:        g.config.Model,
		SystemPrompt: SystemPrompt,
		Prompt:       prompt,
		MaxTokens:    g.config.MaxTokens,
		Temperature:  g.config.Temperature,
	})
	if err != nil {
		g.logger.Warn("LLM call failed: %v", err)
		return g.fallbackOr(ctx, prompt, audit, errors.ExternalServiceError("llm", err))
	}
	audit.ResponseHash = core.NewHash([]byte(resp.Content))
	if resp.Usage != nil {
		g.logger.Debug("LLM usage: %d prompt + %d completion tokens (%s)",
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.Model)
	}
	if g.usage != nil {
		g.usage.RecordUsage(ctx, "propose", resp.Usage)
	}

	proposals, dropped, err := ParseProposals(resp.Content)
	if err != nil {
		g.logger.Warn("unparseable LLM response (%s): %v", audit.ResponseHash.Short(), err)
		return g.fallbackOr(ctx, prompt, audit, err)
	}

	audit.Proposals = len(proposals)
	audit.Dropped = dropped
	g.setAudit(audit)
	g.logger.Info("LLM proposed %d configurations (%d dropped, prompt %s)", len(proposals), len(dropped), audit.PromptHash.Short())
	return proposals, nil
}

// WithUsageRecorder attaches a token usage recorder and returns g
func (g *ProposalAdapter) WithUsageRecorder(r UsageRecorder) *ProposalAdapter {
	g.usage = r
	return g
}

// LastAudit returns the audit of the most recent Generate call
func (g *ProposalAdapter) LastAudit() ports.GenerationAudit {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAudit
}

func (g *ProposalAdapter) setAudit(audit ports.GenerationAudit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAudit = audit
}

func (g *ProposalAdapter) fallbackOr(ctx context.Context, prompt string, audit ports.GenerationAudit, cause error) ([]ports.RawProposal, error) {
	if g.config.FallbackToHeuristic && g.fallback != nil {
		proposals, err := g.fallback.Generate(ctx, prompt)
		if err == nil {
			audit.GeneratorType = "heuristic"
			audit.FellBack = true
			audit.Proposals = len(proposals)
			g.setAudit(audit)
			g.logger.Info("fell back to heuristic generator: %d proposals", len(proposals))
			return proposals, nil
		}
		cause = fmt.Errorf("%v; fallback: %w", cause, err)
	}
	g.setAudit(audit)
	return nil, errors.ProposalFailed("LLM proposal generation failed", cause)
}

// ParseProposals extracts a JSON array of proposal objects from a model
// response, tolerating markdown code fences and surrounding prose. Elements
// that are not objects are dropped and reported.
func ParseProposals(response string) ([]ports.RawProposal, []ports.DroppedProposal, error) {
	jsonStr := extractJSONArray(response)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &elements); err != nil {
		return nil, nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	proposals := make([]ports.RawProposal, 0, len(elements))
	var dropped []ports.DroppedProposal
	for i, raw := range elements {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			dropped = append(dropped, ports.DroppedProposal{
				Index:   i,
				Reason:  "not_an_object",
				Message: fmt.Sprintf("proposal %d dropped: expected a JSON object", i),
			})
			continue
		}
		proposals = append(proposals, ports.RawProposal(obj))
	}
	return proposals, dropped, nil
}

func extractJSONArray(response string) string {
	jsonStr := response
	if strings.Contains(jsonStr, "```json") {
		start := strings.Index(jsonStr, "```json")
		end := strings.Index(jsonStr[start+7:], "```")
		if end > 0 {
			jsonStr = jsonStr[start+7 : start+7+end]
		}
	} else if strings.Contains(jsonStr, "```") {
		start := strings.Index(jsonStr, "```")
		end := strings.Index(jsonStr[start+3:], "```")
		if end > 0 {
			jsonStr = jsonStr[start+3 : start+3+end]
		}
	}
	jsonStr = strings.TrimSpace(jsonStr)

	// prose around a bare array
	if !strings.HasPrefix(jsonStr, "[") {
		if start, end := strings.Index(jsonStr, "["), strings.LastIndex(jsonStr, "]"); start >= 0 && end > start {
			jsonStr = jsonStr[start : end+1]
		}
	}
	return jsonStr
}
