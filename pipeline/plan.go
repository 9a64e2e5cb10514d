package pipeline

import (
	"context"

	"github.com/nvr-ai/go-invert/office"
)

// Source is what started a run.
type Source string

// Source constants
const (
	// SourceSelection inverts the pictures selected in the document.
	SourceSelection Source = "selection"
	// SourceClipboard inverts the image on the clipboard.
	SourceClipboard Source = "clipboard"
)

// Trigger starts a run.
type Trigger struct {
	Source Source `json:"source"`
}

type scopeFunc func(ctx context.Context, host office.Host, fn func(ctx context.Context, sc *Scope) error) error

// Pair is an acquisition strategy matched with the replacement that writes back
// to the same place.
type Pair struct {
	Acquirer Acquirer
	Replacer Replacer
	// Degraded marks the generic path taken in place of a host-specific one.
	Degraded bool

	within scopeFunc
}

// Name identifies the pair in results and logs.
func (p Pair) Name() string { return p.Acquirer.Name() + "/" + p.Replacer.Name() }

func (p Pair) run(ctx context.Context, host office.Host, fn func(ctx context.Context, sc *Scope) error) error {
	if p.within == nil {
		return fn(ctx, &Scope{Host: host})
	}
	return p.within(ctx, host, fn)
}

func inPresentation(ctx context.Context, host office.Host, fn func(ctx context.Context, sc *Scope) error) error {
	return host.Presentation.RunPresentation(ctx, func(ctx context.Context, s office.PresentationSession) error {
		return fn(ctx, &Scope{Host: host, Presentation: s})
	})
}

func inDocument(ctx context.Context, host office.Host, fn func(ctx context.Context, sc *Scope) error) error {
	return host.Document.RunDocument(ctx, func(ctx context.Context, s office.DocumentSession) error {
		return fn(ctx, &Scope{Host: host, Document: s})
	})
}

// Plan is the ordered list of strategy pairs for one run. Later pairs are only
// tried when an earlier one fails with a kind that allows fallback.
type Plan struct {
	Pairs []Pair
	// Notice is set when the host lacks its richest tier.
	Notice string
}

// NewPlan orders the strategies for a host and trigger. The host-specific pair
// comes first when its tier was probed and its API is present; the generic
// selection path always follows so that a runtime failure still has somewhere to go.
//
// Arguments:
// - caps: The probed capabilities.
// - host: The host collaborators.
// - trigger: What started the run.
//
// Returns:
// - The plan; an empty plan means no strategy applies.
func NewPlan(caps office.CapabilitySet, host office.Host, trigger Trigger) Plan {
	if trigger.Source == SourceClipboard {
		var r Replacer = ClipboardWrite{}
		if host.Selection != nil {
			r = SelectionReplace{}
		}
		if host.Clipboard == nil {
			return Plan{}
		}
		return Plan{Pairs: []Pair{{Acquirer: ClipboardRead{}, Replacer: r}}}
	}

	var plan Plan
	generic := Pair{Acquirer: GenericSelection{}, Replacer: SelectionReplace{}}

	switch caps.Host {
	case office.HostPowerPoint:
		if caps.PowerPointAPI110 && host.Presentation != nil {
			plan.Pairs = append(plan.Pairs, Pair{Acquirer: ShapeExport{}, Replacer: ShapeFill{}, within: inPresentation})
		} else {
			plan.Notice = degradedNotice(caps)
			generic.Degraded = true
		}
	case office.HostWord:
		if caps.WordAPI11 && host.Document != nil {
			plan.Pairs = append(plan.Pairs, Pair{Acquirer: EmbeddedPicture{}, Replacer: PictureReplace{}, within: inDocument})
		} else {
			generic.Degraded = true
		}
	}

	if host.Selection != nil {
		plan.Pairs = append(plan.Pairs, generic)
	}
	return plan
}
