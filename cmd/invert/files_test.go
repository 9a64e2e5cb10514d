package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-invert/config"
	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office/ooxml"
	"github.com/nvr-ai/go-invert/pipeline"
)

func pngBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	r := images.NewRaster(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			r.Set(x, y, c)
		}
	}
	p, err := codec.Encode(r, images.FormatPNG, false)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	require.NoError(t, err)
	return raw
}

func writeDocx(t *testing.T, dir string, pictures int) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	add("[Content_Types].xml", []byte(`<Types><Default Extension="png" ContentType="image/png"/></Types>`))
	add("word/document.xml", []byte(`<w:document/>`))
	for i := 1; i <= pictures; i++ {
		add("word/media/image"+string(rune('0'+i))+".png", pngBytes(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestInvertFilesFirstPicture(t *testing.T) {
	path := writeDocx(t, t.TempDir(), 2)

	reports := invertFiles(context.Background(), config.Default(), quietLogger(), fileOptions{}, []string{path})

	require.Len(t, reports, 1)
	r := reports[0]
	require.NoError(t, r.Err)
	assert.Equal(t, pipeline.Success, r.Kind)
	assert.Equal(t, 1, r.Processed)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "report.inverted.docx"), r.Output)

	_, err := ooxml.Open(r.Output)
	require.NoError(t, err)
}

func TestInvertFilesAllPicturesInPlace(t *testing.T) {
	path := writeDocx(t, t.TempDir(), 3)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	reports := invertFiles(context.Background(), config.Default(), quietLogger(), fileOptions{all: true, inplace: true}, []string{path})

	r := reports[0]
	require.NoError(t, r.Err)
	assert.Equal(t, pipeline.Success, r.Kind)
	assert.Equal(t, 3, r.Processed)
	assert.Equal(t, path, r.Output)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestInvertFilesReportsEachFile(t *testing.T) {
	dir := t.TempDir()
	good := writeDocx(t, dir, 1)
	missing := filepath.Join(dir, "missing.pptx")
	empty := filepath.Join(t.TempDir(), "empty.docx")
	require.NoError(t, os.Rename(writeDocx(t, filepath.Dir(empty), 0), empty))

	reports := invertFiles(context.Background(), config.Default(), quietLogger(), fileOptions{}, []string{good, missing, empty})

	require.Len(t, reports, 3)
	assert.True(t, reports[0].ok())
	assert.Error(t, reports[1].Err)
	assert.False(t, reports[1].ok())
	assert.NoError(t, reports[2].Err)
	assert.Equal(t, pipeline.NoSelectionFound, reports[2].Kind)
	assert.Empty(t, reports[2].Output)

	var out bytes.Buffer
	printReports(&out, reports)
	assert.Contains(t, out.String(), "missing.pptx: error:")
	assert.Contains(t, out.String(), "NoSelectionFound")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "deck.inverted.pptx", outputPath("deck.pptx", false))
	assert.Equal(t, "deck.pptx", outputPath("deck.pptx", true))
}
