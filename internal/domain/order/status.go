package order

// Status is the fulfillment lifecycle state of a sales order.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusQuoted           Status = "quoted"
	StatusDepositDue       Status = "deposit_due"
	StatusInQueue          Status = "in_queue"
	StatusInProduction     Status = "in_production"
	StatusInLabeling       Status = "in_labeling"
	StatusAwaitingInvoice  Status = "awaiting_invoice"
	StatusAwaitingPayment  Status = "awaiting_payment"
	StatusInPacking        Status = "in_packing"
	StatusPacked           Status = "packed"
	StatusReadyToShip      Status = "ready_to_ship"
	StatusShipped          Status = "shipped"
	StatusOnHold           Status = "on_hold"
	StatusCancelled        Status = "cancelled"
)

// pipeline is the happy-path fulfillment sequence.
// on_hold and cancelled sit outside it.
var pipeline = []Status{
	StatusDraft,
	StatusAwaitingApproval,
	StatusQuoted,
	StatusDepositDue,
	StatusInQueue,
	StatusInProduction,
	StatusInLabeling,
	StatusAwaitingInvoice,
	StatusAwaitingPayment,
	StatusInPacking,
	StatusPacked,
	StatusReadyToShip,
	StatusShipped,
}

var pipelineIndex = func() map[Status]int {
	m := make(map[Status]int, len(pipeline))
	for i, s := range pipeline {
		m[s] = i
	}
	return m
}()

// AllStatuses lists every lifecycle state.
func AllStatuses() []Status {
	all := make([]Status, 0, len(pipeline)+2)
	all = append(all, pipeline...)
	return append(all, StatusOnHold, StatusCancelled)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	if _, ok := pipelineIndex[s]; ok {
		return true
	}
	return s == StatusOnHold || s == StatusCancelled
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusShipped || s == StatusCancelled
}

// PipelinePosition returns the index of s in the fulfillment pipeline,
// or -1 for on_hold/cancelled.
func (s Status) PipelinePosition() int {
	if i, ok := pipelineIndex[s]; ok {
		return i
	}
	return -1
}

// CanTransition reports whether an order may move from one status to another.
// Rules:
//   - terminal states (shipped, cancelled) accept nothing
//   - any non-terminal state may go on_hold or be cancelled
//   - on_hold resumes to any non-terminal pipeline state
//   - pipeline states move forward only (skipping stages is allowed;
//     in_labeling is optional for unlabeled orders)
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusOnHold || to == StatusCancelled {
		return true
	}
	if from == StatusOnHold {
		return to.PipelinePosition() >= 0 && to != StatusShipped
	}
	return to.PipelinePosition() > from.PipelinePosition()
}
