package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office"
	"github.com/nvr-ai/go-invert/office/memhost"
	"github.com/nvr-ai/go-invert/pipeline"
)

// ShapeData is a selected shape and its exported (or written) image.
type ShapeData struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// ClipboardEntry is one typed clipboard representation, base64 encoded.
type ClipboardEntry struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// InvertRequest describes the document state the shim observed. Omitted
// selection or clipboard fields mean the host does not offer that API.
type InvertRequest struct {
	Host         string            `json:"host"`
	Requirements map[string]string `json:"requirements"`
	Source       pipeline.Source   `json:"source,omitempty"`
	Shapes       []ShapeData       `json:"shapes,omitempty"`
	Pictures     []string          `json:"pictures,omitempty"`
	Selection    *string           `json:"selection,omitempty"`
	Clipboard    []ClipboardEntry  `json:"clipboard,omitempty"`
}

// StatusMessage is a progress message posted during the run.
type StatusMessage struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// InvertResponse is the run result plus the writes the shim must apply.
type InvertResponse struct {
	pipeline.Result
	Shapes    []ShapeData     `json:"shapes,omitempty"`
	Pictures  []string        `json:"pictures,omitempty"`
	Selection string          `json:"selection,omitempty"`
	Clipboard string          `json:"clipboard,omitempty"`
	Statuses  []StatusMessage `json:"statuses"`
}

// host materialises the request as an in-memory document host.
func (req InvertRequest) host() (*memhost.Host, error) {
	ht := office.ParseHostType(req.Host)
	h := memhost.New(ht, req.Requirements)
	h.NoPresentation = ht != office.HostPowerPoint
	h.NoDocument = ht != office.HostWord

	for i, s := range req.Shapes {
		id := s.ID
		if id == "" {
			id = fmt.Sprint(i + 1)
		}
		h.Shapes = append(h.Shapes, &memhost.Shape{ShapeID: id, Image: s.Data})
	}
	for _, p := range req.Pictures {
		h.Pictures = append(h.Pictures, &memhost.Picture{Image: p})
	}

	if req.Selection != nil {
		h.Selection = *req.Selection
	} else {
		h.NoSelection = true
	}

	if req.Clipboard == nil {
		h.NoClipboard = true
	}
	for _, e := range req.Clipboard {
		data, err := codec.DecodeText(e.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "clipboard entry %q", e.Type)
		}
		h.ClipboardItems = append(h.ClipboardItems, office.ClipboardItem{
			Types: map[string][]byte{strings.ToLower(e.Type): data},
		})
	}
	return h, nil
}

// Invert runs the pipeline against the document state in req.
//
// Arguments:
// - ctx: Passed to the pipeline.
// - req: The observed document state.
//
// Returns:
// - *InvertResponse: The result and the writes to apply.
// - error: When the request cannot be turned into a host.
func (s *Server) Invert(ctx context.Context, req InvertRequest) (*InvertResponse, error) {
	h, err := req.host()
	if err != nil {
		return nil, err
	}

	resp := &InvertResponse{Statuses: []StatusMessage{}}
	cfg := s.cfg.Pipeline
	cfg.Logger = s.logger
	cfg.Status = office.StatusFunc(func(msg string, sev office.Severity) {
		resp.Statuses = append(resp.Statuses, StatusMessage{Message: msg, Severity: sev.String()})
	})
	orch, err := pipeline.New(h.Office(), cfg)
	if err != nil {
		return nil, err
	}

	resp.Result = orch.Run(ctx, pipeline.Trigger{Source: req.Source})

	for _, sh := range h.Shapes {
		if sh.Fill != "" {
			resp.Shapes = append(resp.Shapes, ShapeData{ID: sh.ShapeID, Data: sh.Fill})
		}
	}
	for _, p := range h.Pictures {
		if p.Replaced != "" {
			resp.Pictures = make([]string, len(h.Pictures))
			break
		}
	}
	if resp.Pictures != nil {
		for i, p := range h.Pictures {
			resp.Pictures[i] = p.Replaced
		}
	}
	if n := len(h.SelectionWrites); n > 0 {
		resp.Selection = h.SelectionWrites[n-1]
	}
	if n := len(h.ClipboardWrites); n > 0 {
		resp.Clipboard = h.ClipboardWrites[n-1]
	}
	return resp, nil
}

func (s *Server) handleInvert(w http.ResponseWriter, r *http.Request) {
	var req InvertRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.Invert(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set(RunIDHeader, resp.RunID)
	writeJSON(w, http.StatusOK, resp)
}

// ImageRequest is a single image to invert.
type ImageRequest struct {
	Data string `json:"data"`
	// Format is the declared input format; the content is sniffed regardless.
	Format string `json:"format,omitempty"`
	// OutputFormat is png (default), bmp or tiff.
	OutputFormat string `json:"output_format,omitempty"`
}

// ImageResponse is the inverted image.
type ImageResponse struct {
	Data     string             `json:"data"`
	Format   images.ImageFormat `json:"format"`
	Framed   bool               `json:"framed"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Checksum string             `json:"checksum"`
}

// InvertImage decodes, inverts and re-encodes one payload. The output is framed
// when the input was.
func (s *Server) InvertImage(req ImageRequest) (*ImageResponse, error) {
	in := images.Payload{Data: req.Data}
	if f, ok := images.ParseFormat(req.Format); ok {
		in.Format = f
	}
	frame, err := codec.SplitFrame(req.Data)
	if err != nil {
		return nil, err
	}
	in.Framed = frame.Framed

	out := s.cfg.Pipeline.OutputFormat
	if req.OutputFormat != "" {
		f, ok := images.ParseFormat(req.OutputFormat)
		if !ok {
			return nil, errors.Errorf("unknown output format %q", req.OutputFormat)
		}
		out = f
	}

	prof := s.cfg.Profiler
	done := prof.StartOperation("image.decode")
	raster, err := s.codec.Decode(in)
	done()
	if err != nil {
		prof.CountOutcome("image.DecodeFailure")
		return nil, err
	}
	invert, err := images.Backend(s.cfg.Pipeline.Backend)
	if err != nil {
		return nil, err
	}
	done = prof.StartOperation("image.invert")
	err = invert(raster)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "invert")
	}
	done = prof.StartOperation("image.encode")
	p, err := s.codec.Encode(raster, out, in.Framed)
	done()
	if err != nil {
		return nil, err
	}
	prof.CountOutcome("image.Success")
	return &ImageResponse{
		Data:     p.Data,
		Format:   p.Format,
		Framed:   p.Framed,
		Width:    raster.Width(),
		Height:   raster.Height(),
		Checksum: images.Checksum(raster),
	}, nil
}

func (s *Server) handleInvertImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(RunIDHeader, uuid.NewString())
	var req ImageRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.InvertImage(req)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, codec.ErrDecode) || errors.Is(err, codec.ErrUnsupportedEncoding) {
			code = http.StatusUnprocessableEntity
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CapabilitiesRequest describes a host environment.
type CapabilitiesRequest struct {
	Host         string            `json:"host"`
	Requirements map[string]string `json:"requirements"`
	Source       pipeline.Source   `json:"source,omitempty"`
}

// CapabilitiesResponse is the probe result and the strategies a run would try.
type CapabilitiesResponse struct {
	office.CapabilitySet
	HasRichestTier bool     `json:"richest_tier"`
	Strategies     []string `json:"strategies"`
	Notice         string   `json:"notice,omitempty"`
}

// Capabilities probes a described environment, assuming every API its host type
// can offer is present.
func (s *Server) Capabilities(req CapabilitiesRequest) *CapabilitiesResponse {
	h := memhost.New(office.ParseHostType(req.Host), req.Requirements)
	caps := office.Probe(h.Env)
	plan := pipeline.NewPlan(caps, h.Office(), pipeline.Trigger{Source: req.Source})

	resp := &CapabilitiesResponse{
		CapabilitySet:  caps,
		HasRichestTier: caps.RichestTier(),
		Strategies:     []string{},
		Notice:         plan.Notice,
	}
	for _, p := range plan.Pairs {
		resp.Strategies = append(resp.Strategies, p.Name())
	}
	return resp
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	var req CapabilitiesRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.Capabilities(req))
}
