package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Success},
		{"classified", newError(HostWriteFailure, "fill", errors.New("boom")), HostWriteFailure},
		{"wrapped classified", errors.Wrap(newError(NoSelectionFound, "empty", nil), "acquire"), NoSelectionFound},
		{"permission", errors.Wrap(office.ErrPermissionDenied, "read"), ClipboardPermissionDenied},
		{"decode", errors.Wrap(codec.ErrDecode, "bad png"), DecodeFailure},
		{"host exception", errors.New("GeneralException"), UnsupportedEnvironment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindFallback(t *testing.T) {
	assert.True(t, UnsupportedEnvironment.fallsBack())
	assert.True(t, DecodeFailure.fallsBack())
	assert.False(t, HostWriteFailure.fallsBack())
	assert.False(t, ClipboardPermissionDenied.fallsBack())
	assert.False(t, NoSelectionFound.fallsBack())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fill s1: boom", newError(HostWriteFailure, "fill s1", errors.New("boom")).Error())
	assert.Equal(t, "nothing selected", newError(NoSelectionFound, "nothing selected", nil).Error())
	assert.Equal(t, "boom", newError(HostWriteFailure, "", errors.New("boom")).Error())

	cause := errors.New("cause")
	assert.True(t, errors.Is(newError(DecodeFailure, "decode", cause), cause))
}

func TestResultJSONUsesKindNames(t *testing.T) {
	b, err := json.Marshal(Result{Kind: PartialSuccess, Trace: []State{StateIdle, StateDone}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"PartialSuccess"`)
	assert.Contains(t, string(b), `"trace":["Idle","Done"]`)

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("HostWriteFailure")))
	assert.Equal(t, HostWriteFailure, k)
	assert.Error(t, k.UnmarshalText([]byte("Nope")))
}
