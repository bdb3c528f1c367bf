package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viab/viab-backend/internal/providers"
)

func TestAggregate_SingleBatchPassesThrough(t *testing.T) {
	out, err := Aggregate([]BatchOutput{{Index: 1, Files: 2, Content: "analysis text"}}, 2)
	require.NoError(t, err)
	assert.Equal(t, "analysis text", out)
	assert.NotContains(t, out, "## ADDITIONAL FILES ANALYSIS")
}

func TestAggregate_MultiBatchJoinsInOrder(t *testing.T) {
	outputs := []BatchOutput{
		{Index: 1, Files: 2, Content: "first batch"},
		{Index: 2, Files: 2, Content: "second batch"},
		{Index: 3, Files: 1, Content: "third batch"},
	}

	out, err := Aggregate(outputs, 5)
	require.NoError(t, err)

	first := strings.Index(out, "first batch")
	second := strings.Index(out, "second batch")
	third := strings.Index(out, "third batch")
	assert.True(t, first < second && second < third)

	assert.Equal(t, 2, strings.Count(out, "## ADDITIONAL FILES ANALYSIS"))
	assert.Contains(t, out, "## COMPLETE PROJECT SUMMARY")
	assert.Contains(t, out, "5 files analyzed in 3 batches")
}

func TestAggregate_FailedBatchBecomesPlaceholder(t *testing.T) {
	outputs := []BatchOutput{
		{Index: 1, Files: 2, Content: "first batch"},
		{Index: 2, Files: 2, Err: errors.New("model timeout")},
	}

	out, err := Aggregate(outputs, 4)
	require.NoError(t, err)
	assert.Contains(t, out, "**Batch 2 analysis unavailable:** model timeout")

	// Placeholder sits in the batch's own slot.
	assert.Less(t, strings.Index(out, "first batch"), strings.Index(out, "Batch 2 analysis unavailable"))
}

func TestAggregate_AllFailedOrBlankIsEmptyResult(t *testing.T) {
	_, err := Aggregate(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = Aggregate([]BatchOutput{{Index: 1, Content: "   \n"}}, 1)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = Aggregate([]BatchOutput{
		{Index: 1, Err: errors.New("boom")},
		{Index: 2, Err: errors.New("boom")},
	}, 4)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestDrain_CollectsDeltas(t *testing.T) {
	ch := make(chan providers.StreamChunk, 4)
	ch <- providers.StreamChunk{Delta: "hello "}
	ch <- providers.StreamChunk{Delta: "world"}
	ch <- providers.StreamChunk{FinishReason: "stop"}
	close(ch)

	out, err := Drain(ch)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestDrain_ErrorChunkFails(t *testing.T) {
	ch := make(chan providers.StreamChunk, 2)
	ch <- providers.StreamChunk{Delta: "partial"}
	ch <- providers.StreamChunk{Error: "rate limited"}
	close(ch)

	_, err := Drain(ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
