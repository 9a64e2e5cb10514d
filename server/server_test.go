package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/pipeline"
	"github.com/nvr-ai/go-invert/profiler"
)

func whitePNG(t *testing.T) string {
	t.Helper()
	r := images.NewRaster(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	p, err := codec.Encode(r, images.FormatPNG, false)
	require.NoError(t, err)
	return p.Data
}

func topLeft(t *testing.T, data string) color.NRGBA {
	t.Helper()
	r, err := codec.Decode(images.Payload{Data: data})
	require.NoError(t, err)
	return r.At(0, 0)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := New(Config{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestInvertPowerPointShapes(t *testing.T) {
	h := New(Config{}).Handler()
	png := whitePNG(t)

	rec := post(t, h, "/v1/invert", InvertRequest{
		Host:         "powerpoint",
		Requirements: map[string]string{"PowerPointApi": "1.10"},
		Shapes:       []ShapeData{{ID: "a", Data: png}, {ID: "b", Data: ""}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp InvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.PartialSuccess, resp.Kind)
	assert.Equal(t, resp.RunID, rec.Header().Get(RunIDHeader))
	require.Len(t, resp.Shapes, 1)
	assert.Equal(t, "a", resp.Shapes[0].ID)
	assert.Equal(t, color.NRGBA{A: 255}, topLeft(t, resp.Shapes[0].Data))
	require.NotEmpty(t, resp.Statuses)
	assert.Equal(t, "Processing...", resp.Statuses[0].Message)
	assert.Equal(t, "warning", resp.Statuses[len(resp.Statuses)-1].Severity)
}

func TestInvertDegradedPowerPointUsesSelection(t *testing.T) {
	h := New(Config{}).Handler()
	sel := "data:image/png;base64," + whitePNG(t)

	rec := post(t, h, "/v1/invert", InvertRequest{
		Host:         "PowerPoint",
		Requirements: map[string]string{"PowerPointApi": "1.8", "ImageCoercion": "1.2"},
		Selection:    &sel,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.Success, resp.Kind)
	assert.True(t, resp.Degraded)
	assert.Equal(t, color.NRGBA{A: 255}, topLeft(t, resp.Selection))
}

func TestInvertWordPictures(t *testing.T) {
	h := New(Config{}).Handler()

	rec := post(t, h, "/v1/invert", InvertRequest{
		Host:         "Word",
		Requirements: map[string]string{"WordApi": "1.1"},
		Pictures:     []string{whitePNG(t), whitePNG(t)},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.Success, resp.Kind)
	require.Len(t, resp.Pictures, 2)
	assert.NotEmpty(t, resp.Pictures[0])
	assert.Empty(t, resp.Pictures[1])
}

func TestInvertClipboard(t *testing.T) {
	h := New(Config{}).Handler()

	rec := post(t, h, "/v1/invert", InvertRequest{
		Host:      "Excel",
		Source:    pipeline.SourceClipboard,
		Clipboard: []ClipboardEntry{{Type: "image/png", Data: whitePNG(t)}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.Success, resp.Kind, resp.Message)
	assert.True(t, strings.HasPrefix(resp.Clipboard, "data:image/png;base64,"))
}

func TestInvertRejectsBadRequests(t *testing.T) {
	h := New(Config{MaxBodyBytes: 64}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/invert", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/v1/invert", InvertRequest{Host: "Word", Pictures: []string{strings.Repeat("A", 200)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "body over the limit")

	h = New(Config{}).Handler()
	rec = post(t, h, "/v1/invert", InvertRequest{Host: "Word", Clipboard: []ClipboardEntry{{Type: "image/png", Data: "%%%"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvertImageEndpoint(t *testing.T) {
	h := New(Config{}).Handler()

	rec := post(t, h, "/v1/images/invert", ImageRequest{Data: "data:image/png;base64," + whitePNG(t)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RunIDHeader))

	var resp ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Framed)
	assert.True(t, strings.HasPrefix(resp.Data, "data:image/png;base64,"))
	assert.Equal(t, 2, resp.Width)
	assert.Equal(t, 2, resp.Height)
	assert.Equal(t, color.NRGBA{A: 255}, topLeft(t, resp.Data))

	rec = post(t, h, "/v1/images/invert", ImageRequest{Data: base64.StdEncoding.EncodeToString([]byte("plain text"))})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, h, "/v1/images/invert", ImageRequest{Data: whitePNG(t), OutputFormat: "jpeg"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h := New(Config{}).Handler()
	png := whitePNG(t)

	require.Equal(t, http.StatusOK, post(t, h, "/v1/images/invert", ImageRequest{Data: png}).Code)
	require.Equal(t, http.StatusOK, post(t, h, "/v1/invert", InvertRequest{Host: "Excel", Selection: &png}).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats profiler.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Outcomes["image.Success"])
	assert.Equal(t, int64(1), stats.Outcomes["Success"])
	names := map[string]bool{}
	for _, op := range stats.Operations {
		names[op.Name] = true
	}
	assert.True(t, names["image.decode"])
	assert.True(t, names["decode"])
	assert.True(t, names["run"])
}

func TestCapabilitiesEndpoint(t *testing.T) {
	h := New(Config{}).Handler()

	rec := post(t, h, "/v1/capabilities", CapabilitiesRequest{
		Host:         "PowerPoint",
		Requirements: map[string]string{"PowerPointApi": "1.10", "ImageCoercion": "1.2"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CapabilitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.PowerPointAPI110)
	assert.True(t, resp.HasRichestTier)
	assert.Equal(t, []string{"shape-export/shape-fill", "generic-selection/selection-replace"}, resp.Strategies)
}

var testImpl = &mcp.Implementation{Name: "go-invert-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv := New(Config{}).MCPServer()

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestMCPInvertImage(t *testing.T) {
	session := mcpSession(t)

	res := callTool(t, session, "invert_image", map[string]any{"data": whitePNG(t)})
	require.NoError(t, res.GetError())

	var resp ImageResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &resp))
	assert.False(t, resp.Framed)
	assert.Equal(t, color.NRGBA{A: 255}, topLeft(t, resp.Data))
}

func TestMCPInvertImageError(t *testing.T) {
	session := mcpSession(t)

	res := callTool(t, session, "invert_image", map[string]any{"data": "bm90IGFuIGltYWdl"})
	assert.True(t, res.IsError)
}

func TestMCPProbeCapabilities(t *testing.T) {
	session := mcpSession(t)

	res := callTool(t, session, "probe_capabilities", map[string]any{
		"host":         "PowerPoint",
		"requirements": map[string]string{"PowerPointApi": "1.8"},
	})
	require.NoError(t, res.GetError())

	var resp CapabilitiesResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &resp))
	assert.False(t, resp.HasRichestTier)
	assert.Equal(t, []string{"generic-selection/selection-replace"}, resp.Strategies)
	assert.Contains(t, resp.Notice, "PowerPointApi 1.10: false")
}

func TestMCPInvertSelection(t *testing.T) {
	session := mcpSession(t)

	res := callTool(t, session, "invert_selection", map[string]any{
		"host":         "Word",
		"requirements": map[string]string{"WordApi": "1.1"},
	})
	require.NoError(t, res.GetError())

	var resp InvertResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &resp))
	assert.Equal(t, pipeline.NoSelectionFound, resp.Kind)
}
