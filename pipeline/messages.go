package pipeline

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/go-invert/office"
)

const (
	msgProcessing = "Processing..."
	msgDone       = "Done! Image inverted."
	msgGeneric    = " (generic mode)"
)

func selectedMessage(n int) string {
	return fmt.Sprintf("Selected %d object(s), inverting...", n)
}

func degradedNotice(caps office.CapabilitySet) string {
	return fmt.Sprintf("%s 1.10 is not available here, switching to the generic path.\n%s",
		office.SetPowerPointAPI, caps.Summary())
}

func successMessage(processed int, degraded bool) string {
	msg := msgDone
	if processed > 1 {
		msg = fmt.Sprintf("Done! %d images inverted.", processed)
	}
	if degraded {
		msg += msgGeneric
	}
	return msg
}

func partialMessage(processed, total int, items []ItemReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inverted %d of %d images, %d skipped:", processed, total, total-processed)
	for _, it := range items {
		if !it.OK {
			fmt.Fprintf(&b, "\n- %s: %s", it.Target, it.Message)
		}
	}
	return b.String()
}

func failureMessage(kind Kind, err error, prior error) string {
	var msg string
	switch kind {
	case NoSelectionFound:
		msg = err.Error()
	case ClipboardPermissionDenied:
		msg = "Clipboard access was refused. Allow clipboard access for this add-in and try again."
	case DecodeFailure:
		msg = "Could not read the image: " + err.Error()
	case HostWriteFailure:
		msg = "Could not write the image back: " + err.Error()
	default:
		msg = "Error: " + err.Error()
	}
	if prior != nil {
		msg += "\n(preferred path failed: " + prior.Error() + ")"
	}
	return msg
}
