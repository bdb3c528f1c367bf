package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/repository"
)

// stubProvider scripts per-call responses and records every request. onCall,
// when set, observes each call with its zero-based index before it returns.
type stubProvider struct {
	mu        sync.Mutex
	requests  []providers.CompletionRequest
	responses []stubResponse
	onCall    func(call int, req providers.CompletionRequest)
}

type stubResponse struct {
	content string
	err     error
}

func (p *stubProvider) Name() string          { return "stub" }
func (p *stubProvider) ValidateConfig() error { return nil }

func (p *stubProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := len(p.requests)
	p.requests = append(p.requests, req)
	if p.onCall != nil {
		p.onCall(call, req)
	}

	if call < len(p.responses) {
		r := p.responses[call]
		if r.err != nil {
			return nil, r.err
		}
		return &providers.CompletionResponse{Content: r.content}, nil
	}
	return &providers.CompletionResponse{Content: "default analysis"}, nil
}

func (p *stubProvider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan providers.StreamChunk, 2)
	ch <- providers.StreamChunk{Delta: resp.Content}
	ch <- providers.StreamChunk{FinishReason: "stop"}
	close(ch)
	return ch, nil
}

func (p *stubProvider) calls() []providers.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]providers.CompletionRequest(nil), p.requests...)
}

// stubSessions and stubTranscripts are in-process repository fakes.
type stubSessions struct {
	mu      sync.Mutex
	ensured []string
}

func (s *stubSessions) Ensure(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, userID+"/"+sessionID)
	return nil
}

func (s *stubSessions) Get(ctx context.Context, userID, sessionID string) (*repository.Session, error) {
	return nil, nil
}
func (s *stubSessions) List(ctx context.Context, userID string) ([]*repository.Session, error) {
	return nil, nil
}
func (s *stubSessions) Delete(ctx context.Context, userID, sessionID string) error { return nil }

type stubTranscripts struct {
	mu    sync.Mutex
	turns []*repository.Turn
}

func (s *stubTranscripts) Append(ctx context.Context, turn *repository.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

func (s *stubTranscripts) List(ctx context.Context, userID, sessionID string) ([]*repository.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*repository.Turn(nil), s.turns...), nil
}

func (s *stubTranscripts) Purge(ctx context.Context, userID, sessionID string) error { return nil }

func newTestAnalysis(provider providers.Provider) (*AnalysisService, memory.Store, *stubTranscripts, *sessionLocks) {
	registry := providers.NewRegistry()
	registry.Register(providers.RoleVisualizer, provider)
	store := memory.NewInMemoryStore()
	transcripts := &stubTranscripts{}
	locks := newSessionLocks()
	svc := NewAnalysisService(registry, store, &stubSessions{}, transcripts, locks, 3, 2, time.Minute)
	return svc, store, transcripts, locks
}

func imageFiles(names ...string) []InputFile {
	files := make([]InputFile, len(names))
	for i, n := range names {
		files[i] = InputFile{Name: n, MimeType: "image/jpeg", Data: []byte{0xFF, 0xD8}}
	}
	return files
}

func TestAnalyze_FourFilesRunTwoSequentialBatches(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "batch one analysis"},
		{content: "batch two analysis\n- **Total Rooms**: 12\n"},
	}}
	svc, store, transcripts, _ := newTestAnalysis(provider)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg"),
	})
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Attachments, 2)
	assert.Len(t, calls[1].Attachments, 2)
	assert.Contains(t, calls[0].Messages[1].Content, "batch 1 of 2")
	last := calls[1].Messages[len(calls[1].Messages)-1]
	assert.Contains(t, last.Content, "batch 2 of 2")

	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, 4, result.FilesUsed)
	assert.Contains(t, result.Content, "batch one analysis")
	assert.Contains(t, result.Content, "## ADDITIONAL FILES ANALYSIS")
	assert.Contains(t, result.Content, "## COMPLETE PROJECT SUMMARY")

	entries, err := store.List(context.Background(), memory.Scope{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "12", entries[analysis.KeyTotalRooms])
	assert.Equal(t, "true", entries[analysis.KeyMultiFileComplete])
	assert.NotEmpty(t, entries[analysis.KeyTotalFloorPlans])

	turns, _ := transcripts.List(context.Background(), "u1", "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, result.Content, turns[1].Content)
}

func TestAnalyze_LaterBatchesSeePriorOutput(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "batch one findings\n- **Total Rooms**: 7\n"},
		{content: "batch two findings"},
	}}
	svc, store, _, _ := newTestAnalysis(provider)

	scope := memory.Scope{UserID: "u1", SessionID: "s1"}
	var roomsAtSecondCall string
	provider.onCall = func(call int, _ providers.CompletionRequest) {
		if call == 1 {
			roomsAtSecondCall, _, _ = store.Get(context.Background(), scope, analysis.KeyTotalRooms)
		}
	}

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg"),
	})
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 2)

	// The second call replays the first batch's exchange ahead of its own
	// instructions.
	msgs := calls[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "batch 1 of 2")
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "batch one findings")
	assert.Contains(t, msgs[3].Content, "batch 2 of 2")

	// Batch 1's facts were in memory before the second call went out.
	assert.Equal(t, "7", roomsAtSecondCall)
}

func TestAnalyze_CancelBetweenBatchesKeepsCompletedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &stubProvider{responses: []stubResponse{
		{content: "partial findings\n- **Building Type**: Residential\n"},
	}}
	provider.onCall = func(call int, _ providers.CompletionRequest) {
		if call == 0 {
			cancel()
		}
	}
	svc, store, transcripts, _ := newTestAnalysis(provider)

	result, err := svc.Analyze(ctx, AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg"),
	})
	require.NoError(t, err)

	// The second batch was never attempted.
	require.Len(t, provider.calls(), 1)
	assert.Equal(t, 1, result.Batches)
	assert.Contains(t, result.Content, "partial findings")

	// The completed batch still reached memory and the transcript.
	entries, err := store.List(context.Background(), memory.Scope{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Residential", entries[analysis.KeyBuildingType])

	turns, _ := transcripts.List(context.Background(), "u1", "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, result.Content, turns[1].Content)
}

func TestAnalyze_SmallRequestSingleCall(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "single analysis"}}}
	svc, _, _, _ := newTestAnalysis(provider)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg", "b.jpg", "c.jpg"),
	})
	require.NoError(t, err)

	require.Len(t, provider.calls(), 1)
	assert.Equal(t, "single analysis", result.Content)
	assert.NotContains(t, result.Content, "## ADDITIONAL FILES ANALYSIS")
}

func TestAnalyze_FailedBatchBecomesPlaceholder(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "first ok"},
		{err: errors.New("model timeout")},
	}}
	svc, _, _, _ := newTestAnalysis(provider)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg"),
	})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "first ok")
	assert.Contains(t, result.Content, "Batch 2 analysis unavailable")
}

func TestAnalyze_SessionBusyRejected(t *testing.T) {
	provider := &stubProvider{}
	svc, _, _, locks := newTestAnalysis(provider)

	scope := memory.Scope{UserID: "u1", SessionID: "s1"}
	release, ok := locks.tryAcquire(scope)
	require.True(t, ok)
	defer release()

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg"),
	})
	assert.ErrorIs(t, err, analysis.ErrSessionBusy)
	assert.Empty(t, provider.calls())

	// A different session is unaffected.
	_, err = svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s2",
		Files:     imageFiles("a.jpg"),
	})
	assert.NoError(t, err)
}

func TestAnalyze_InvalidAndUnsupportedInput(t *testing.T) {
	provider := &stubProvider{}
	svc, _, _, _ := newTestAnalysis(provider)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{UserID: "u1", SessionID: "s1"})
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)

	_, err = svc.Analyze(context.Background(), AnalyzeRequest{SessionID: "s1", Files: imageFiles("a.jpg")})
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)

	_, err = svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     []InputFile{{Name: "model.dwg"}, {Name: "notes.txt"}},
	})
	assert.ErrorIs(t, err, analysis.ErrNoValidInput)

	assert.Empty(t, provider.calls())
}

func TestAnalyze_StreamingDeltasForwarded(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "streamed analysis"}}}
	svc, _, _, _ := newTestAnalysis(provider)

	var mu sync.Mutex
	var got string
	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg"),
		OnDelta: func(delta string) {
			mu.Lock()
			got += delta
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed analysis", got)
	assert.Equal(t, "streamed analysis", result.Content)
}

func TestAnalyze_TextOnlyRunsSingleCompletion(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "text analysis\n- **Building Type**: Residential\n"},
	}}
	svc, store, transcripts, _ := newTestAnalysis(provider)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Text:      "we have a 3-bedroom single-story plan",
	})
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Attachments)
	assert.Contains(t, calls[0].Messages[1].Content, "3-bedroom")

	assert.Equal(t, 1, result.Batches)
	assert.Equal(t, 0, result.FilesUsed)

	value, ok, _ := store.Get(context.Background(), memory.Scope{UserID: "u1", SessionID: "s1"}, analysis.KeyBuildingType)
	assert.True(t, ok)
	assert.Equal(t, "Residential", value)

	turns, _ := transcripts.List(context.Background(), "u1", "s1")
	assert.Len(t, turns, 2)
}

func TestAnalyze_CustomPromptAppended(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "ok"}}}
	svc, _, _, _ := newTestAnalysis(provider)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files:     imageFiles("a.jpg"),
		Prompt:    "focus on plumbing fixtures",
	})
	require.NoError(t, err)
	assert.Contains(t, provider.calls()[0].Messages[1].Content, "focus on plumbing fixtures")
}

func TestAnalyze_DocumentAttachmentsKeepKind(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "pdf analysis"}}}
	svc, _, _, _ := newTestAnalysis(provider)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		UserID:    "u1",
		SessionID: "s1",
		Files: []InputFile{
			{Name: "site.pdf", MimeType: "application/pdf", Data: []byte("%PDF")},
			{Name: "plan.png", MimeType: "image/png", Data: []byte{0x89}},
		},
	})
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Attachments, 2)
	assert.Equal(t, providers.AttachmentDocument, calls[0].Attachments[0].Kind)
	assert.Equal(t, providers.AttachmentImage, calls[0].Attachments[1].Kind)
}
