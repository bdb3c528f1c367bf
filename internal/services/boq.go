package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/knowledge"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/prompts"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/repository"
)

// BOQService runs the quantity-surveyor agent over the facts accumulated in
// session memory. With no facts on record it still answers, flagging the
// output as a template BOQ.
type BOQService struct {
	registry    *providers.Registry
	store       memory.Store
	sessions    repository.SessionRepository
	transcripts repository.TranscriptRepository
	retriever   knowledge.Retriever
	locks       *sessionLocks
	callTimeout time.Duration
}

func NewBOQService(
	registry *providers.Registry,
	store memory.Store,
	sessions repository.SessionRepository,
	transcripts repository.TranscriptRepository,
	retriever knowledge.Retriever,
	locks *sessionLocks,
	callTimeout time.Duration,
) *BOQService {
	if callTimeout <= 0 {
		callTimeout = 3 * time.Minute
	}
	return &BOQService{
		registry:    registry,
		store:       store,
		sessions:    sessions,
		transcripts: transcripts,
		retriever:   retriever,
		locks:       locks,
		callTimeout: callTimeout,
	}
}

// BOQResult is one generated bill of quantities.
type BOQResult struct {
	BOQ       string `json:"boq"`
	FactsUsed int    `json:"facts_used"`
	Accuracy  string `json:"accuracy"`
}

// Generate produces the BOQ for the session and records generation metadata
// back into memory. The client's request text rides along with the
// accumulated facts.
func (s *BOQService) Generate(ctx context.Context, userID, sessionID, data string) (*BOQResult, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", analysis.ErrInvalidRequest)
	}

	scope := memory.Scope{UserID: userID, SessionID: sessionID}
	release, ok := s.locks.tryAcquire(scope)
	if !ok {
		return nil, analysis.ErrSessionBusy
	}
	defer release()

	if err := s.sessions.Ensure(ctx, userID, sessionID); err != nil {
		return nil, &analysis.PersistenceError{Err: err}
	}

	facts, err := s.store.List(ctx, scope)
	if err != nil {
		return nil, &analysis.PersistenceError{Err: err}
	}
	// Prior generation metadata is bookkeeping, not project data.
	delete(facts, analysis.KeyBOQGenerated)
	delete(facts, analysis.KeyBOQAccuracy)
	delete(facts, analysis.KeyBOQGeneration)

	log := logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"facts":      len(facts),
	})
	log.Info("Generating bill of quantities")

	provider, err := s.registry.Get(providers.RoleBOQ)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	userMsg := prompts.BOQRequest(facts, s.lookup(ctx))
	if strings.TrimSpace(data) != "" {
		userMsg += "\nClient request:\n" + data
	}
	resp, err := provider.Complete(callCtx, providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: "system", Content: prompts.BOQSystem},
			{Role: "user", Content: userMsg},
		},
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, analysis.ErrEmptyResult
	}

	accuracy := accuracyFor(facts)
	meta := map[string]string{
		analysis.KeyBOQGenerated:  fmt.Sprintf("%t", len(facts) > 0),
		analysis.KeyBOQAccuracy:   accuracy,
		analysis.KeyBOQGeneration: time.Now().UTC().Format("2006-01-02"),
	}
	pctx := context.WithoutCancel(ctx)
	for key, value := range meta {
		if err := s.store.Put(pctx, scope, key, value); err != nil {
			return nil, &analysis.PersistenceError{Content: resp.Content, Err: err}
		}
	}
	turn := &repository.Turn{
		UserID:    userID,
		SessionID: sessionID,
		Agent:     providers.RoleBOQ,
		Role:      "assistant",
		Content:   resp.Content,
	}
	if err := s.transcripts.Append(pctx, turn); err != nil {
		return nil, &analysis.PersistenceError{Content: resp.Content, Err: err}
	}

	log.WithField("accuracy", accuracy).Info("BOQ generated")

	return &BOQResult{BOQ: resp.Content, FactsUsed: len(facts), Accuracy: accuracy}, nil
}

func (s *BOQService) lookup(ctx context.Context) []string {
	if s.retriever == nil {
		return nil
	}
	snippets, err := s.retriever.Search(ctx, "bill of quantities material standards and waste factors", 3)
	if err != nil {
		logrus.WithError(err).Warn("Knowledge lookup failed")
		return nil
	}
	out := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		out = append(out, sn.Content)
	}
	return out
}

// accuracyFor grades how much consolidated data backs the quantities.
func accuracyFor(facts map[string]string) string {
	switch {
	case len(facts) == 0:
		return "low"
	case facts[analysis.KeyMultiFileComplete] == "true" || len(facts) >= 8:
		return "high"
	default:
		return "medium"
	}
}
