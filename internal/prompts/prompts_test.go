package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisualizerBatch_NarratesPosition(t *testing.T) {
	first := VisualizerBatch([]string{"a.jpg", "b.jpg"}, 1, 3)
	assert.Contains(t, first, "batch 1 of 3")
	assert.Contains(t, first, "do NOT produce the consolidated project summary yet")
	assert.Contains(t, first, "1. a.jpg")
	assert.Contains(t, first, "2. b.jpg")

	last := VisualizerBatch([]string{"e.pdf"}, 3, 3)
	assert.Contains(t, last, "batch 3 of 3")
	assert.Contains(t, last, "final batch")
	assert.Contains(t, last, "CONSOLIDATED PROJECT SUMMARY")
}

func TestVisualizerBatch_SingleBatchSkipsNarration(t *testing.T) {
	msg := VisualizerBatch([]string{"a.jpg"}, 1, 1)
	assert.NotContains(t, msg, "batch 1 of 1")
	assert.Contains(t, msg, "CONSOLIDATED PROJECT SUMMARY")
}

func TestBOQRequest_TemplateWhenNoFacts(t *testing.T) {
	msg := BOQRequest(nil, nil)
	assert.Contains(t, msg, "template BOQ")
}

func TestBOQRequest_FactsAreSortedAndListed(t *testing.T) {
	msg := BOQRequest(map[string]string{
		"total_rooms_all_floors": "18",
		"building_type":          "Residential",
	}, []string{"standard passage"})

	assert.Contains(t, msg, "2 items")
	assert.Contains(t, msg, "- building_type: Residential")
	assert.Contains(t, msg, "- total_rooms_all_floors: 18")
	assert.Less(t, strings.Index(msg, "building_type"), strings.Index(msg, "total_rooms_all_floors"))
	assert.Contains(t, msg, "standard passage")
}

func TestInterviewTurn_IncludesContextSections(t *testing.T) {
	msg := InterviewTurn("hello", map[string]string{"k": "v"}, []string{"snippet"})
	assert.Contains(t, msg, "already on record")
	assert.Contains(t, msg, "- k: v")
	assert.Contains(t, msg, "snippet")
	assert.Contains(t, msg, "Client message:\nhello")

	bare := InterviewTurn("hello", nil, nil)
	assert.NotContains(t, bare, "already on record")
}
