package services

import (
	"time"

	"github.com/viab/viab-backend/internal/config"
	"github.com/viab/viab-backend/internal/knowledge"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/repository"
)

// Services holds all service instances. The three agents share one session
// lock table, so a session runs at most one agent at a time regardless of
// which endpoint was hit.
type Services struct {
	Analysis  *AnalysisService
	Interview *InterviewService
	BOQ       *BOQService

	Store       memory.Store
	Sessions    repository.SessionRepository
	Transcripts repository.TranscriptRepository
}

// NewServices creates all service instances.
func NewServices(
	cfg *config.Config,
	registry *providers.Registry,
	store memory.Store,
	sessions repository.SessionRepository,
	transcripts repository.TranscriptRepository,
	retriever knowledge.Retriever,
) *Services {
	locks := newSessionLocks()
	timeout := time.Duration(cfg.Analysis.CallTimeoutSeconds) * time.Second

	return &Services{
		Analysis: NewAnalysisService(
			registry, store, sessions, transcripts, locks,
			cfg.Analysis.MaxInline, cfg.Analysis.BatchSize, timeout,
		),
		Interview:   NewInterviewService(registry, store, sessions, transcripts, retriever, locks, timeout),
		BOQ:         NewBOQService(registry, store, sessions, transcripts, retriever, locks, timeout),
		Store:       store,
		Sessions:    sessions,
		Transcripts: transcripts,
	}
}
