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

// InterviewService runs the requirements-gathering agent. Each turn sees the
// project facts already consolidated in session memory so the agent never
// re-asks for data the drawings established.
type InterviewService struct {
	registry    *providers.Registry
	store       memory.Store
	sessions    repository.SessionRepository
	transcripts repository.TranscriptRepository
	retriever   knowledge.Retriever
	locks       *sessionLocks
	callTimeout time.Duration
}

func NewInterviewService(
	registry *providers.Registry,
	store memory.Store,
	sessions repository.SessionRepository,
	transcripts repository.TranscriptRepository,
	retriever knowledge.Retriever,
	locks *sessionLocks,
	callTimeout time.Duration,
) *InterviewService {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	return &InterviewService{
		registry:    registry,
		store:       store,
		sessions:    sessions,
		transcripts: transcripts,
		retriever:   retriever,
		locks:       locks,
		callTimeout: callTimeout,
	}
}

// Chat handles one interview turn and returns the agent's reply. Any
// recognized requirement facts in the reply are folded into session memory.
func (s *InterviewService) Chat(ctx context.Context, userID, sessionID, message string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", fmt.Errorf("%w: user_id and session_id are required", analysis.ErrInvalidRequest)
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", analysis.ErrInvalidRequest)
	}

	scope := memory.Scope{UserID: userID, SessionID: sessionID}
	release, ok := s.locks.tryAcquire(scope)
	if !ok {
		return "", analysis.ErrSessionBusy
	}
	defer release()

	if err := s.sessions.Ensure(ctx, userID, sessionID); err != nil {
		return "", &analysis.PersistenceError{Err: err}
	}

	facts, err := s.store.List(ctx, scope)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read session memory for interview")
		facts = nil
	}

	provider, err := s.registry.Get(providers.RoleInterviewer)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	history := s.history(ctx, userID, sessionID)
	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{Role: "system", Content: prompts.InterviewSystem})
	messages = append(messages, history...)
	messages = append(messages, providers.Message{
		Role:    "user",
		Content: prompts.InterviewTurn(message, facts, s.lookup(ctx, message)),
	})

	chunks, err := provider.StreamComplete(callCtx, providers.CompletionRequest{
		Messages:  messages,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", err
	}

	reply, err := analysis.Drain(chunks)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", analysis.ErrEmptyResult
	}

	pctx := context.WithoutCancel(ctx)
	for key, value := range analysis.ExtractFacts(reply).Entries() {
		if err := s.store.Put(pctx, scope, key, value); err != nil {
			return "", &analysis.PersistenceError{Content: reply, Err: err}
		}
	}
	turns := []*repository.Turn{
		{UserID: userID, SessionID: sessionID, Agent: providers.RoleInterviewer, Role: "user", Content: message},
		{UserID: userID, SessionID: sessionID, Agent: providers.RoleInterviewer, Role: "assistant", Content: reply},
	}
	for _, turn := range turns {
		if err := s.transcripts.Append(pctx, turn); err != nil {
			return "", &analysis.PersistenceError{Content: reply, Err: err}
		}
	}

	return reply, nil
}

// interviewHistoryTurns caps how many stored interview turns are replayed
// into each call, three exchanges either way.
const interviewHistoryTurns = 6

// history replays the most recent interview turns so follow-up questions
// keep their context. Reading the transcript is best-effort; failures
// degrade to a history-free turn.
func (s *InterviewService) history(ctx context.Context, userID, sessionID string) []providers.Message {
	turns, err := s.transcripts.List(ctx, userID, sessionID)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read transcript for interview history")
		return nil
	}

	var msgs []providers.Message
	for _, turn := range turns {
		if turn.Agent != providers.RoleInterviewer {
			continue
		}
		msgs = append(msgs, providers.Message{Role: turn.Role, Content: turn.Content})
	}
	if len(msgs) > interviewHistoryTurns {
		msgs = msgs[len(msgs)-interviewHistoryTurns:]
	}
	return msgs
}

// lookup pulls architecture-standards passages for the client's message.
// Retrieval is best-effort; failures degrade to no enrichment.
func (s *InterviewService) lookup(ctx context.Context, query string) []string {
	if s.retriever == nil {
		return nil
	}
	snippets, err := s.retriever.Search(ctx, query, 3)
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
