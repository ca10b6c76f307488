package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Op        string `json:"op"`
	Record    string `json:"record,omitempty"`
	Selection string `json:"selection,omitempty"`
	Key       string `json:"key,omitempty"`
	Value     any    `json:"value,omitempty"`
	Outcome   string `json:"outcome"`
}

// FieldState is one field of the final record.
type FieldState struct {
	Key   string `json:"key"`
	State string `json:"state"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Mode is the strictness the record ran under.
	Mode string `json:"mode"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the record after the last step, in key order.
	// Nil when the scenario never produced a record.
	Final []FieldState `json:"final"`

	// Warnings counts installer warnings emitted during the run.
	Warnings int `json:"warnings"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an event, assigning the next seq.
func (r *Result) addTrace(ev TraceEvent) *TraceEvent {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
	return &r.Trace[len(r.Trace)-1]
}
