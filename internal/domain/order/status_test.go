package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelinePosition(t *testing.T) {
	assert.Equal(t, 0, StatusDraft.PipelinePosition())
	assert.Equal(t, 4, StatusInQueue.PipelinePosition())
	assert.Equal(t, 12, StatusShipped.PipelinePosition())
	assert.Equal(t, -1, StatusOnHold.PipelinePosition())
	assert.Equal(t, -1, StatusCancelled.PipelinePosition())
	assert.Equal(t, -1, Status("bogus").PipelinePosition())
}

func TestIsValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("archived").IsValid())
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusShipped.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusOnHold.IsTerminal())
	assert.False(t, StatusPacked.IsTerminal())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"forward one step", StatusDraft, StatusAwaitingApproval, true},
		{"skip quoting entirely", StatusDraft, StatusInQueue, true},
		{"skip labeling", StatusInProduction, StatusAwaitingInvoice, true},
		{"backward", StatusInProduction, StatusQuoted, false},
		{"same status", StatusQuoted, StatusQuoted, false},
		{"to on_hold from anywhere", StatusInProduction, StatusOnHold, true},
		{"cancel from draft", StatusDraft, StatusCancelled, true},
		{"cancel from packed", StatusPacked, StatusCancelled, true},
		{"resume from hold", StatusOnHold, StatusInProduction, true},
		{"resume from hold to early stage", StatusOnHold, StatusDraft, true},
		{"hold cannot jump straight to shipped", StatusOnHold, StatusShipped, false},
		{"hold to hold", StatusOnHold, StatusOnHold, false},
		{"shipped is terminal", StatusShipped, StatusOnHold, false},
		{"cancelled is terminal", StatusCancelled, StatusDraft, false},
		{"cancelled cannot be re-cancelled", StatusCancelled, StatusCancelled, false},
		{"unknown source", Status("bogus"), StatusDraft, false},
		{"unknown target", StatusDraft, Status("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_ForwardOnly(t *testing.T) {
	// Every pipeline pair: forward moves allowed, backward moves not.
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			fi, ti := from.PipelinePosition(), to.PipelinePosition()
			if fi < 0 || ti < 0 || from == to {
				continue
			}
			got := CanTransition(from, to)
			if from.IsTerminal() {
				assert.False(t, got, "%s -> %s", from, to)
				continue
			}
			assert.Equal(t, ti > fi, got, "%s -> %s", from, to)
		}
	}
}
