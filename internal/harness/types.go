package harness

// Trace event types.
const (
	StepApply    = "apply"
	StepSetLabel = "set_label"
	StepSnapshot = "snapshot"
)

// TraceEvent records one executed step and its outcome.
type TraceEvent struct {
	Type    string         `json:"type"`
	Step    int            `json:"step"`
	Input   map[string]any `json:"input"`
	Outcome map[string]any `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Ledger is the final audit ledger, newest first.
	Ledger []map[string]any `json:"ledger"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Ledger: []map[string]any{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
