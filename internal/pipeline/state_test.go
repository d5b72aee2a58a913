package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	forward := []ItemState{StatePending, StateExtracting, StateExtracted, StateAnalyzing, StateConsolidating, StateDone}
	for i := 0; i < len(forward)-1; i++ {
		assert.True(t, CanTransition(forward[i], forward[i+1]), "%s -> %s", forward[i], forward[i+1])
		assert.True(t, CanTransition(forward[i], StateFailed), "%s -> failed", forward[i])
	}

	assert.False(t, CanTransition(StatePending, StateAnalyzing))
	assert.False(t, CanTransition(StateExtracted, StateExtracting))
	assert.False(t, CanTransition(StateDone, StateFailed))
	assert.False(t, CanTransition(StateFailed, StateExtracting))
	assert.False(t, CanTransition(StateDone, StateDone))
}

func TestItemState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "consolidating", StateConsolidating.String())
	assert.Equal(t, "state(42)", ItemState(42).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateAnalyzing.Terminal())
}

func TestTracker_RejectsIllegalTransition(t *testing.T) {
	var seen []ItemState
	tr := &tracker{itemID: "x", observer: ObserverFunc(func(_ string, _, to ItemState) {
		seen = append(seen, to)
	})}

	require.NoError(t, tr.advance(StateExtracting))
	require.Error(t, tr.advance(StateDone))
	require.NoError(t, tr.advance(StateFailed))
	require.Error(t, tr.advance(StateExtracting))

	assert.Equal(t, []ItemState{StateExtracting, StateFailed}, seen)
	assert.Equal(t, StateFailed, tr.state)
}

func TestConsolidator(t *testing.T) {
	item := Item{
		ID:          "doc-1",
		DisplayName: "Plan.docx",
		Link:        "https://drive.google.com/file/d/doc-1/view",
		Metadata:    map[string]string{"owner": "jane"},
	}
	c := NewConsolidator([]string{StageSummary, StagePriority})
	assert.Equal(t, []string{StageSummary, StagePriority}, c.Required())

	report, err := c.Consolidate(item, []StageResult{
		{ItemID: "doc-1", StageName: StagePriority, Output: "Low Priority: archive"},
		{ItemID: "doc-1", StageName: StageSummary, Output: "A plan."},
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", report.ItemID)
	assert.Equal(t, "Plan.docx", report.DisplayName)
	assert.Equal(t, item.Link, report.Link)
	assert.Equal(t, map[string]string{StageSummary: "A plan.", StagePriority: "Low Priority: archive"}, report.Fields)

	report.Metadata["owner"] = "changed"
	assert.Equal(t, "jane", item.Metadata["owner"], "metadata must be copied")

	tests := []struct {
		name    string
		results []StageResult
	}{
		{name: "missing stage", results: []StageResult{{ItemID: "doc-1", StageName: StageSummary, Output: "A plan."}}},
		{name: "foreign item", results: []StageResult{
			{ItemID: "doc-1", StageName: StageSummary, Output: "A plan."},
			{ItemID: "doc-2", StageName: StagePriority, Output: "Low Priority: x"},
		}},
		{name: "duplicate stage", results: []StageResult{
			{ItemID: "doc-1", StageName: StageSummary, Output: "A plan."},
			{ItemID: "doc-1", StageName: StageSummary, Output: "Another."},
			{ItemID: "doc-1", StageName: StagePriority, Output: "Low Priority: x"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Consolidate(item, tt.results)
			require.Error(t, err)
			assert.Equal(t, ReasonIncompleteStages, ReasonOf(err))
		})
	}
}

func TestFailureFor(t *testing.T) {
	f := failureFor("a", newStageError(ReasonStageTimeout, StageSummary, ErrTimeout))
	assert.Equal(t, ReasonStageTimeout, f.Reason)
	assert.Equal(t, "stage summary: capability call timed out", f.Detail)
	assert.True(t, f.Reason.IsStageFailure())
	assert.False(t, ReasonDecodeError.IsStageFailure())
}
