package office

// Severity classifies a status message for rendering.
type Severity int

const (
	// SeverityInfo is neutral progress text.
	SeverityInfo Severity = iota
	// SeveritySuccess reports a completed run.
	SeveritySuccess
	// SeverityWarning reports a degraded or partial outcome.
	SeverityWarning
	// SeverityError reports a failed run.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusSink renders progress messages. The pipeline never reads UI state back.
type StatusSink interface {
	Status(message string, severity Severity)
}

// StatusFunc adapts a function to a StatusSink.
type StatusFunc func(message string, severity Severity)

// Status calls f(message, severity).
func (f StatusFunc) Status(message string, severity Severity) { f(message, severity) }

// Discard is a StatusSink that drops every message.
var Discard StatusSink = StatusFunc(func(string, Severity) {})
