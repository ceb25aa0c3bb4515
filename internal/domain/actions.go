package domain

// ActionKind classifies a recommended action.
type ActionKind string

const (
	// ActionIncreaseClass recommends adding to an underweight asset class.
	ActionIncreaseClass ActionKind = "increase_class"
	// ActionDecreaseClass recommends trimming an overweight asset class.
	ActionDecreaseClass ActionKind = "decrease_class"
	// ActionReducePosition recommends shrinking a position above the
	// concentration limit.
	ActionReducePosition ActionKind = "reduce_position"
	// ActionGuidance is a static configured note, always appended last.
	ActionGuidance ActionKind = "guidance"
)

// ActionItem is one recommendation. Amount is nil for guidance items.
// Item order is contractual: class rebalance actions (target order), then
// position reductions (descending weight, ties by symbol), then guidance
// (configured order).
type ActionItem struct {
	Kind      ActionKind `json:"kind"`
	Subject   string     `json:"subject"`
	Amount    *float64   `json:"amount,omitempty"`
	Rationale string     `json:"rationale"`
}
