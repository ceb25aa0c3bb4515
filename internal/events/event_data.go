package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	AsOf     string `json:"as_of"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID       string  `json:"run_id"`
	Pipeline    string  `json:"pipeline"`
	AsOf        string  `json:"as_of"`
	TotalValue  float64 `json:"total_value"`
	ActionCount int     `json:"action_count"`
	DurationMS  int64   `json:"duration_ms"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	Error    string `json:"error"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType {
	return RunFailed
}

// CoverageAlertData contains data for CoverageAlert events
type CoverageAlertData struct {
	AssetClass string  `json:"asset_class"`
	Coverage   float64 `json:"coverage"`
	AsOf       string  `json:"as_of"`
	IssueURL   string  `json:"issue_url,omitempty"`
}

// EventType returns the event type for CoverageAlertData
func (d *CoverageAlertData) EventType() EventType {
	return CoverageAlert
}
