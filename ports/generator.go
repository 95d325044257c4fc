package ports

import (
	"context"

	"ciasx/domain/core"
)

// RawProposal is an untyped configuration proposal as produced by a generator.
// Keys mirror experiment.Configuration field names.
type RawProposal map[string]any

// ProposalGenerator turns a planner prompt into raw proposals.
// Failures are reported as *errors.AppError with code PROPOSAL_FAILED.
type ProposalGenerator interface {
	Generate(ctx context.Context, prompt string) ([]RawProposal, error)
}

// GeneratorFunc adapts a function to ProposalGenerator
type GeneratorFunc func(ctx context.Context, prompt string) ([]RawProposal, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) ([]RawProposal, error) {
	return f(ctx, prompt)
}

// DroppedProposal records why a raw proposal was discarded while parsing.
type DroppedProposal struct {
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// GenerationAudit is metadata about a generation call (prompt/response hashes, model, drops).
type GenerationAudit struct {
	GeneratorType string            `json:"generator_type"` // "llm" | "heuristic"
	Model         string            `json:"model,omitempty"`
	Temperature   float64           `json:"temperature,omitempty"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	PromptHash    core.Hash         `json:"prompt_hash,omitempty"`
	ResponseHash  core.Hash         `json:"response_hash,omitempty"`
	Proposals     int               `json:"proposals"`
	FellBack      bool              `json:"fell_back,omitempty"`
	Dropped       []DroppedProposal `json:"dropped,omitempty"`
}
