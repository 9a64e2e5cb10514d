package pipeline

import (
	"github.com/nvr-ai/go-invert/office"
)

// ItemReport is the outcome for one target of a batch.
type ItemReport struct {
	Target  string `json:"target"`
	Kind    Kind   `json:"kind"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Result is the terminal outcome of a run. Message is meant for direct display.
type Result struct {
	RunID    string `json:"run_id"`
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	Strategy string `json:"strategy,omitempty"`
	// Degraded is true when the generic path produced the result.
	Degraded     bool                 `json:"degraded"`
	Processed    int                  `json:"processed"`
	Skipped      int                  `json:"skipped"`
	Items        []ItemReport         `json:"items,omitempty"`
	Capabilities office.CapabilitySet `json:"capabilities"`
	Trace        []State              `json:"trace"`
}

// OK reports whether the run wrote at least one image back.
func (r Result) OK() bool { return r.Kind.OK() }

// Severity maps the result kind to a status severity.
func (r Result) Severity() office.Severity {
	switch r.Kind {
	case Success:
		return office.SeveritySuccess
	case PartialSuccess, NoSelectionFound:
		return office.SeverityWarning
	default:
		return office.SeverityError
	}
}

// State returns the state the run ended in.
func (r Result) State() State {
	if len(r.Trace) == 0 {
		return StateIdle
	}
	return r.Trace[len(r.Trace)-1]
}
