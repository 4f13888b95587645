// Package assistant is the top-level facade over the AI core: it owns the
// session lifecycle and wires the session tracker, metadata generator,
// provider orchestrator and query engine into the two user-facing
// operations, advisory chat and structured query.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finsight-ai/finsight/ai/metadata"
	"github.com/finsight-ai/finsight/ai/orchestrator"
	"github.com/finsight-ai/finsight/ai/queryengine"
	"github.com/finsight-ai/finsight/ai/session"
)

// Assistant answers natural-language financial questions. One Assistant
// holds one live session; its lifecycle is owned by the caller.
type Assistant struct {
	orch    *orchestrator.Orchestrator
	tracker *session.Tracker
	meta    *metadata.Generator
	engine  *queryengine.Engine
	logger  *slog.Logger
}

// New creates an Assistant with a fresh session tracker.
func New(orch *orchestrator.Orchestrator, meta *metadata.Generator, engine *queryengine.Engine) *Assistant {
	return &Assistant{
		orch:    orch,
		tracker: session.NewTracker(),
		meta:    meta,
		engine:  engine,
		logger:  slog.Default(),
	}
}

// Tracker exposes the live session for inspection.
func (a *Assistant) Tracker() *session.Tracker {
	return a.tracker
}

// ChatReply is the outcome of an advisory chat question.
type ChatReply struct {
	Text           string `json:"text"`
	Provider       string `json:"provider"`
	Fallback       bool   `json:"fallback"`
	ConversationID string `json:"conversationId"`
}

// QueryReply is the outcome of a structured-query question. Exec carries the
// tagged execution result; RawText preserves the backend reply so the caller
// can fall back to prose when no query could be derived.
type QueryReply struct {
	Exec           *queryengine.ExecResult `json:"exec"`
	RawText        string                  `json:"rawText,omitempty"`
	Provider       string                  `json:"provider,omitempty"`
	Fallback       bool                    `json:"fallback"`
	ConversationID string                  `json:"conversationId"`
}

// Chat answers a question as advisory prose.
func (a *Assistant) Chat(ctx context.Context, question string, mode session.Mode) (*ChatReply, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
	result, err := a.call(ctx, question, mode)
	if err != nil {
		return nil, err
	}
	return &ChatReply{
		Text:           result.Text,
		Provider:       result.Provider,
		Fallback:       result.Fallback(),
		ConversationID: a.tracker.ConversationID(),
	}, nil
}

// Query answers a question as a structured computation over the mode's
// dataset. Provider/network failures surface as errors; everything past the
// backend reply comes back as a tagged execution result.
func (a *Assistant) Query(ctx context.Context, question string, mode session.Mode) (*QueryReply, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
	result, err := a.call(ctx, question, mode)
	if err != nil {
		return nil, err
	}

	reply := &QueryReply{
		RawText:        result.Text,
		Provider:       result.Provider,
		Fallback:       result.Fallback(),
		ConversationID: a.tracker.ConversationID(),
	}

	query, ok := queryengine.ParseQuery(result.Text)
	if !ok {
		a.logger.Warn("assistant: no structured query derivable from backend reply",
			"provider", result.Provider, "mode", mode)
		reply.Exec = &queryengine.ExecResult{
			OK:  false,
			Err: "no structured query could be derived from the reply",
		}
		return reply, nil
	}

	reply.Exec = a.engine.Execute(ctx, query, mode)
	return reply, nil
}

// call runs one orchestrated backend call, attaching schema metadata the
// first time a mode is used in the session.
func (a *Assistant) call(ctx context.Context, question string, mode session.Mode) (*orchestrator.Result, error) {
	a.tracker.StartSession(mode)

	var descriptor string
	if a.tracker.NeedsMetadata(mode) {
		var err error
		descriptor, err = a.meta.Generate(ctx, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to generate dataset metadata: %w", err)
		}
	}

	result, err := a.orch.Call(ctx, question, descriptor)
	if err != nil {
		return nil, err
	}
	if descriptor != "" {
		a.tracker.MarkMetadataSent()
	}
	return result, nil
}
