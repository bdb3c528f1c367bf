package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/knowledge"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/repository"
)

type stubRetriever struct {
	snippets []knowledge.Snippet
	queries  []string
}

func (r *stubRetriever) Search(ctx context.Context, query string, limit int) ([]knowledge.Snippet, error) {
	r.queries = append(r.queries, query)
	return r.snippets, nil
}

func (r *stubRetriever) Close() error { return nil }

func newTestInterview(provider providers.Provider, retriever knowledge.Retriever) (*InterviewService, memory.Store, *stubTranscripts) {
	registry := providers.NewRegistry()
	registry.Register(providers.RoleInterviewer, provider)
	store := memory.NewInMemoryStore()
	transcripts := &stubTranscripts{}
	svc := NewInterviewService(registry, store, &stubSessions{}, transcripts, retriever, newSessionLocks(), time.Minute)
	return svc, store, transcripts
}

func TestChat_ReturnsReplyAndRecordsTranscript(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "What is your budget range?"}}}
	svc, _, transcripts := newTestInterview(provider, nil)

	reply, err := svc.Chat(context.Background(), "u1", "s1", "I want a two-floor house")
	require.NoError(t, err)
	assert.Equal(t, "What is your budget range?", reply)

	turns, _ := transcripts.List(context.Background(), "u1", "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "I want a two-floor house", turns[0].Content)
	assert.Equal(t, reply, turns[1].Content)
}

func TestChat_MemoryFactsReachThePrompt(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "noted"}}}
	svc, store, _ := newTestInterview(provider, nil)

	ctx := context.Background()
	scope := memory.Scope{UserID: "u1", SessionID: "s1"}
	require.NoError(t, store.Put(ctx, scope, analysis.KeyTotalRooms, "12 rooms"))

	_, err := svc.Chat(ctx, "u1", "s1", "how many rooms did the plans show?")
	require.NoError(t, err)

	prompt := provider.calls()[0].Messages[1].Content
	assert.Contains(t, prompt, "total_rooms_all_floors: 12 rooms")
	assert.Contains(t, prompt, "how many rooms did the plans show?")
}

func TestChat_ReplyFactsFoldIntoMemory(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "Confirmed requirements:\n- **Building Type**: Residential duplex\n"},
	}}
	svc, store, _ := newTestInterview(provider, nil)

	_, err := svc.Chat(context.Background(), "u1", "s1", "it is a duplex")
	require.NoError(t, err)

	value, ok, _ := store.Get(context.Background(), memory.Scope{UserID: "u1", SessionID: "s1"}, analysis.KeyBuildingType)
	assert.True(t, ok)
	assert.Equal(t, "Residential duplex", value)
}

func TestChat_LaterTurnsReplayEarlierExchanges(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{
		{content: "How many bathrooms do you want?"},
		{content: "Noted, three bathrooms."},
	}}
	svc, _, transcripts := newTestInterview(provider, nil)

	// Visualizer turns share the transcript but stay out of the interview.
	transcripts.Append(context.Background(), &repository.Turn{
		UserID: "u1", SessionID: "s1", Agent: providers.RoleVisualizer,
		Role: "assistant", Content: "drawing analysis narrative",
	})

	_, err := svc.Chat(context.Background(), "u1", "s1", "I want a two-floor house")
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), "u1", "s1", "three of them")
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 2)

	msgs := calls[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "I want a two-floor house", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "How many bathrooms do you want?", msgs[2].Content)
	assert.Contains(t, msgs[3].Content, "three of them")

	for _, m := range msgs {
		assert.NotContains(t, m.Content, "drawing analysis narrative")
	}
}

func TestChat_HistoryKeepsOnlyRecentTurns(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "ok"}}}
	svc, _, transcripts := newTestInterview(provider, nil)

	for i := 0; i < 5; i++ {
		transcripts.Append(context.Background(), &repository.Turn{
			UserID: "u1", SessionID: "s1", Agent: providers.RoleInterviewer,
			Role: "user", Content: fmt.Sprintf("question %d", i),
		})
		transcripts.Append(context.Background(), &repository.Turn{
			UserID: "u1", SessionID: "s1", Agent: providers.RoleInterviewer,
			Role: "assistant", Content: fmt.Sprintf("answer %d", i),
		})
	}

	_, err := svc.Chat(context.Background(), "u1", "s1", "latest question")
	require.NoError(t, err)

	msgs := provider.calls()[0].Messages
	require.Len(t, msgs, interviewHistoryTurns+2)
	assert.Equal(t, "question 2", msgs[1].Content)
	assert.Equal(t, "answer 4", msgs[len(msgs)-2].Content)
}

func TestChat_KnowledgeSnippetsEnrichThePrompt(t *testing.T) {
	provider := &stubProvider{responses: []stubResponse{{content: "ok"}}}
	retriever := &stubRetriever{snippets: []knowledge.Snippet{{Content: "minimum bedroom size is 9 sqm"}}}
	svc, _, _ := newTestInterview(provider, retriever)

	_, err := svc.Chat(context.Background(), "u1", "s1", "what bedroom sizes are allowed?")
	require.NoError(t, err)

	assert.Equal(t, []string{"what bedroom sizes are allowed?"}, retriever.queries)
	assert.Contains(t, provider.calls()[0].Messages[1].Content, "minimum bedroom size is 9 sqm")
}

func TestChat_ValidatesInput(t *testing.T) {
	provider := &stubProvider{}
	svc, _, _ := newTestInterview(provider, nil)

	_, err := svc.Chat(context.Background(), "", "s1", "hello")
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)

	_, err = svc.Chat(context.Background(), "u1", "s1", "   ")
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)

	assert.Empty(t, provider.calls())
}
