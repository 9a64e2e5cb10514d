// Package pipeline - Runs one inversion pass against a document host: probe the
// environment, pick a strategy pair, acquire the selected images, invert them and
// write them back, falling back to the generic selection path when the preferred
// one is unavailable or fails at runtime.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office"
	"github.com/nvr-ai/go-invert/profiler"
)

// previewLen is how much of an undecodable payload is quoted in diagnostics.
const previewLen = 30

// Config configures an Orchestrator.
type Config struct {
	// OutputFormat is the lossless encoding written back (default: PNG).
	OutputFormat images.ImageFormat `json:"output_format" yaml:"output_format"`
	// Backend names the inverter (default: native).
	Backend string `json:"backend" yaml:"backend"`
	// MaxPixels bounds a decoded image (default: codec.DefaultMaxPixels).
	MaxPixels int `json:"max_pixels" yaml:"max_pixels"`

	Logger *slog.Logger      `json:"-" yaml:"-"`
	Status office.StatusSink `json:"-" yaml:"-"`
	// Yield is called once after the "inverting" status is posted, before the
	// heavy work starts, so the host can render it (default: runtime.Gosched).
	Yield func() `json:"-" yaml:"-"`
	// Profiler receives stage timings and run outcomes (optional).
	Profiler *profiler.Profiler `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.OutputFormat == "" {
		c.OutputFormat = images.FormatPNG
	}
	if c.Backend == "" {
		c.Backend = images.BackendNative
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = codec.DefaultMaxPixels
	}
	if c.Status == nil {
		c.Status = office.Discard
	}
	if c.Yield == nil {
		c.Yield = runtime.Gosched
	}
}

// Orchestrator sequences a run. It holds no per-run state, so one orchestrator may
// serve many runs as long as the host tolerates concurrent sessions.
type Orchestrator struct {
	host   office.Host
	cfg    Config
	codec  *codec.Codec
	invert images.InvertFunc
}

// New creates an orchestrator for a host.
//
// Arguments:
// - host: The host collaborators; nil APIs are treated as unavailable.
// - cfg: The configuration.
//
// Returns:
// - *Orchestrator: The orchestrator.
// - error: When the backend is unknown or the output format is lossy.
func New(host office.Host, cfg Config) (*Orchestrator, error) {
	cfg.defaults()
	if !cfg.OutputFormat.Lossless() {
		return nil, errors.Errorf("output format %q is not lossless", cfg.OutputFormat)
	}
	fn, err := images.Backend(cfg.Backend)
	if err != nil {
		return nil, errors.Wrap(err, "select inverter")
	}
	return &Orchestrator{
		host:   host,
		cfg:    cfg,
		codec:  codec.New(codec.Config{MaxPixels: cfg.MaxPixels, Logger: cfg.Logger}),
		invert: fn,
	}, nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.cfg.Logger != nil {
		return o.cfg.Logger
	}
	return slog.Default()
}

// run carries the per-run state.
type run struct {
	m      *machine
	log    *slog.Logger
	status office.StatusSink
}

func (r *run) to(s State) error {
	if err := r.m.to(s); err != nil {
		return newError(UnsupportedEnvironment, "internal", err)
	}
	return nil
}

// outcome is what one strategy attempt produced.
type outcome struct {
	items     []ItemReport
	processed int
	skipped   int
}

// Run performs one inversion pass. It never panics and always returns a terminal
// result: host panics are recovered, logged and classified by the state they
// interrupted.
//
// Arguments:
// - ctx: Passed to every host round-trip.
// - trigger: What started the run.
//
// Returns:
// - The terminal result; its message has already been posted to the status sink.
//
// @example
// res := orch.Run(ctx, pipeline.Trigger{Source: pipeline.SourceSelection})
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (res Result) {
	if trigger.Source == "" {
		trigger.Source = SourceSelection
	}
	r := &run{
		m:      newMachine(),
		status: o.cfg.Status,
	}
	res.RunID = uuid.NewString()
	start := time.Now()
	r.log = o.logger().With("run_id", res.RunID, "source", trigger.Source)

	defer func() {
		if p := recover(); p != nil {
			state := r.m.state()
			r.log.Error("recovered host panic", "state", state, "panic", p)
			r.m.fail()
			res.Kind = panicKind(state)
			res.Message = fmt.Sprintf("Unexpected host error during %s: %v", state, p)
		}
		res.Trace = r.m.trace
		o.cfg.Profiler.Record("run", time.Since(start))
		o.cfg.Profiler.CountOutcome(res.Kind.String())
		o.report(r, res)
	}()

	r.status.Status(msgProcessing, office.SeverityInfo)

	if err := r.to(StateProbing); err != nil {
		return o.failed(r, res, err, nil)
	}
	res.Capabilities = office.Probe(o.host.Env)
	r.log = r.log.With("host", res.Capabilities.Host)

	if err := r.to(StateSelectingStrategy); err != nil {
		return o.failed(r, res, err, nil)
	}
	plan := NewPlan(res.Capabilities, o.host, trigger)
	if plan.Notice != "" {
		r.log.Warn("richest capability tier unavailable", "capabilities", res.Capabilities)
		r.status.Status(plan.Notice, office.SeverityWarning)
	}
	if len(plan.Pairs) == 0 {
		err := newError(UnsupportedEnvironment,
			fmt.Sprintf("no strategy can run on %s\n%s", res.Capabilities.Host, res.Capabilities.Summary()), nil)
		return o.failed(r, res, err, nil)
	}

	var prior error
	for i, pair := range plan.Pairs {
		if i > 0 {
			if err := r.to(StateSelectingStrategy); err != nil {
				return o.failed(r, res, err, prior)
			}
		}
		if err := r.to(StateAcquiring); err != nil {
			return o.failed(r, res, err, prior)
		}
		res.Strategy = pair.Name()
		res.Degraded = pair.Degraded || i > 0
		plog := r.log.With("strategy", res.Strategy)

		out, err := o.attempt(ctx, r, plog, pair)
		if err == nil {
			if err := r.to(StateDone); err != nil {
				return o.failed(r, res, err, prior)
			}
			res.Items = out.items
			res.Processed = out.processed
			res.Skipped = out.skipped
			if out.skipped == 0 {
				res.Kind = Success
				res.Message = successMessage(out.processed, res.Degraded)
			} else {
				res.Kind = PartialSuccess
				res.Message = partialMessage(out.processed, len(out.items), out.items)
			}
			return res
		}

		res.Items = out.items
		res.Skipped = out.skipped
		kind := KindOf(err)
		if kind.fallsBack() && i < len(plan.Pairs)-1 {
			plog.Warn("strategy failed, falling back", "kind", kind, "error", err)
			prior = err
			continue
		}
		return o.failed(r, res, err, prior)
	}
	// The loop always returns; an empty plan was handled above.
	return o.failed(r, res, newError(UnsupportedEnvironment, "no strategy completed", nil), prior)
}

// attempt runs one strategy pair inside its host scope.
func (o *Orchestrator) attempt(ctx context.Context, r *run, log *slog.Logger, pair Pair) (outcome, error) {
	var out outcome
	err := pair.run(ctx, o.host, func(ctx context.Context, sc *Scope) error {
		targets, err := pair.Acquirer.Acquire(ctx, sc)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return newError(NoSelectionFound, "Nothing is selected. Select a picture and try again.", nil)
		}

		log.Info("acquired targets", "count", len(targets))
		r.status.Status(selectedMessage(len(targets)), office.SeverityInfo)
		o.cfg.Yield()

		var first error
		for _, t := range targets {
			err := o.process(ctx, r, log, sc, pair.Replacer, t)
			if err == nil {
				out.processed++
				out.items = append(out.items, ItemReport{Target: t.ID, Kind: Success, OK: true})
				continue
			}

			kind := KindOf(err)
			if !skippable(kind) && out.processed == 0 {
				return err
			}
			log.Warn("skipping target", "target", t.ID, "kind", kind, "error", err)
			out.skipped++
			out.items = append(out.items, ItemReport{Target: t.ID, Kind: kind, Message: err.Error()})
			if first == nil {
				first = err
			}
		}
		if out.processed == 0 {
			return first
		}
		return nil
	})
	return out, err
}

// skippable reports whether a failure on one target leaves the rest of the batch
// worth processing. Once a target has been written back every failure is skipped:
// there is no rollback, so handing over to another strategy would write twice.
func skippable(k Kind) bool {
	return k == DecodeFailure || k == HostWriteFailure
}

// process decodes, inverts, encodes and replaces one target.
func (o *Orchestrator) process(ctx context.Context, r *run, log *slog.Logger, sc *Scope, rep Replacer, t *Target) error {
	prof := o.cfg.Profiler

	if r.m.state() != StateAcquiring {
		if err := r.to(StateAcquiring); err != nil {
			return err
		}
	}
	done := prof.StartOperation("acquire")
	payload, err := t.Load(ctx)
	done()
	if err != nil {
		return err
	}

	if err := r.to(StateDecoding); err != nil {
		return err
	}
	if payload.Empty() {
		return newError(DecodeFailure, "empty image data", nil)
	}
	done = prof.StartOperation("decode")
	raster, err := o.codec.Decode(payload)
	done()
	if err != nil {
		return newError(DecodeFailure, fmt.Sprintf("cannot decode image data starting %q", payload.Preview(previewLen)), err)
	}

	if err := r.to(StateTransforming); err != nil {
		return err
	}
	done = prof.StartOperation("invert")
	err = o.invert(raster)
	done()
	if err != nil {
		return newError(DecodeFailure, "invert", err)
	}

	if err := r.to(StateEncoding); err != nil {
		return err
	}
	done = prof.StartOperation("encode")
	encoded, err := o.codec.Encode(raster, o.cfg.OutputFormat, rep.Framed())
	done()
	if err != nil {
		return newError(DecodeFailure, "encode", err)
	}

	if err := r.to(StateReplacing); err != nil {
		return err
	}
	done = prof.StartOperation("replace")
	err = rep.Replace(ctx, sc, t, encoded)
	done()
	if err != nil {
		return err
	}
	log.Debug("target replaced", "target", t.ID, "width", raster.Width(), "height", raster.Height(),
		"checksum", images.Checksum(raster))
	return nil
}

func (o *Orchestrator) failed(r *run, res Result, err error, prior error) Result {
	r.m.fail()
	res.Kind = KindOf(err)
	if res.Kind.OK() {
		res.Kind = UnsupportedEnvironment
	}
	res.Message = failureMessage(res.Kind, err, prior)
	return res
}

func (o *Orchestrator) report(r *run, res Result) {
	attrs := []any{"kind", res.Kind, "strategy", res.Strategy, "processed", res.Processed, "skipped", res.Skipped}
	switch res.Severity() {
	case office.SeveritySuccess:
		r.log.Info("run finished", attrs...)
	case office.SeverityWarning:
		r.log.Warn("run finished", append(attrs, "message", res.Message)...)
	default:
		r.log.Error("run failed", append(attrs, "message", res.Message)...)
	}
	r.status.Status(res.Message, res.Severity())
}

// panicKind classifies a recovered panic by the state it interrupted.
func panicKind(s State) Kind {
	switch s {
	case StateDecoding, StateTransforming, StateEncoding:
		return DecodeFailure
	case StateReplacing:
		return HostWriteFailure
	default:
		return UnsupportedEnvironment
	}
}
