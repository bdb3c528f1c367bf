package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/providers"
)

func newTestBOQ(provider providers.Provider) (*BOQService, memory.Store, *stubTranscripts) {
	registry := providers.NewRegistry()
	registry.Register(providers.RoleBOQ, provider)
	store := memory.NewInMemoryStore()
	transcripts := &stubTranscripts{}
	svc := NewBOQService(registry, store, &stubSessions{}, transcripts, nil, newSessionLocks(), time.Minute)
	return svc, store, transcripts
}

func TestGenerate_NoFactsYieldsTemplateBOQ(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "| Item No. | Description |"}}}
	svc, store, _ := newTestBOQ(provider)

	result, err := svc.Generate(context.Background(), "u1", "s1", "")
	require.NoError(t, err)

	assert.Equal(t, 0, result.FactsUsed)
	assert.Equal(t, "low", result.Accuracy)

	calls := provider.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[1].Content, "template BOQ")

	entries, _ := store.List(context.Background(), memory.Scope{UserID: "u1", SessionID: "s1"})
	assert.Equal(t, "false", entries[analysis.KeyBOQGenerated])
	assert.Equal(t, "low", entries[analysis.KeyBOQAccuracy])
	assert.NotEmpty(t, entries[analysis.KeyBOQGeneration])
}

func TestGenerate_FactsFlowIntoPrompt(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "detailed boq"}}}
	svc, store, transcripts := newTestBOQ(provider)

	ctx := context.Background()
	scope := memory.Scope{UserID: "u1", SessionID: "s1"}
	require.NoError(t, store.Put(ctx, scope, analysis.KeyTotalRooms, "18 rooms"))
	require.NoError(t, store.Put(ctx, scope, analysis.KeyPlumbingSystem, "5 toilets"))
	require.NoError(t, store.Put(ctx, scope, analysis.KeyMultiFileComplete, "true"))

	result, err := svc.Generate(ctx, "u1", "s1", "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.FactsUsed)
	assert.Equal(t, "high", result.Accuracy)

	prompt := provider.calls()[0].Messages[1].Content
	assert.Contains(t, prompt, "total_rooms_all_floors: 18 rooms")
	assert.Contains(t, prompt, "plumbing_system_detailed: 5 toilets")
	assert.NotContains(t, prompt, "template BOQ")

	entries, _ := store.List(ctx, scope)
	assert.Equal(t, "true", entries[analysis.KeyBOQGenerated])

	turns, _ := transcripts.List(ctx, "u1", "s1")
	require.Len(t, turns, 1)
	assert.Equal(t, providers.RoleBOQ, turns[0].Agent)
	assert.Equal(t, "detailed boq", turns[0].Content)
}

func TestGenerate_PriorMetadataNotCountedAsFacts(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "boq"}}}
	svc, store, _ := newTestBOQ(provider)

	ctx := context.Background()
	scope := memory.Scope{UserID: "u1", SessionID: "s1"}
	require.NoError(t, store.Put(ctx, scope, analysis.KeyBOQGenerated, "true"))
	require.NoError(t, store.Put(ctx, scope, analysis.KeyBOQAccuracy, "high"))

	result, err := svc.Generate(ctx, "u1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.FactsUsed)
	assert.Equal(t, "low", result.Accuracy)
}

func TestGenerate_ClientRequestReachesPrompt(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "boq"}}}
	svc, _, _ := newTestBOQ(provider)

	_, err := svc.Generate(context.Background(), "u1", "s1", "only civil works please")
	require.NoError(t, err)
	assert.Contains(t, provider.calls()[0].Messages[1].Content, "only civil works please")
}

func TestGenerate_EmptyCompletionFails(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "   "}}}
	svc, _, _ := newTestBOQ(provider)

	_, err := svc.Generate(context.Background(), "u1", "s1", "")
	assert.ErrorIs(t, err, analysis.ErrEmptyResult)
}

func TestGenerate_RequiresScope(t *testing.T) {
	provider := &stubProvider{}
	svc, _, _ := newTestBOQ(provider)

	_, err := svc.Generate(context.Background(), "", "s1", "")
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)
	assert.Empty(t, provider.calls())
}
