package dto

import (
	"time"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/batch"
)

// PlanItemRequest plans batches against one order line.
type PlanItemRequest struct {
	LineID       string     `json:"lineId" binding:"required"`
	Quantities   []int      `json:"quantities" binding:"required,min=1"`
	PlannedStart *time.Time `json:"plannedStart"`
}

// PlanBatchesRequest for explicit batch planning.
type PlanBatchesRequest struct {
	Plans []PlanItemRequest `json:"plans" binding:"required,min=1"`
}

// ToInputs maps to domain plan inputs.
func (r PlanBatchesRequest) ToInputs() ([]batch.PlanInput, error) {
	inputs := make([]batch.PlanInput, 0, len(r.Plans))
	for _, p := range r.Plans {
		lineID, err := id.Parse(p.LineID)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, batch.PlanInput{
			LineID:       lineID,
			Quantities:   p.Quantities,
			PlannedStart: p.PlannedStart,
		})
	}
	return inputs, nil
}

// SplitBatchRequest splits a planned batch into several.
type SplitBatchRequest struct {
	Quantities []int `json:"quantities" binding:"required,min=2"`
}

// MergeBatchesRequest folds source batches into the target.
type MergeBatchesRequest struct {
	SourceIDs []string `json:"sourceIds" binding:"required,min=1"`
}

// CompleteStepRequest completes the next workflow step.
type CompleteStepRequest struct {
	Kind batch.StepKind `json:"kind" binding:"required"`
}

// RecordOutputRequest reports the good and scrap counts of a run batch.
type RecordOutputRequest struct {
	GoodQty  int `json:"goodQty" binding:"min=0"`
	ScrapQty int `json:"scrapQty" binding:"min=0"`
}
