package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/whatfile/detector"
)

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		data string
		want detector.Type
	}{
		{name: "binary", data: "GIF89a\x01\x00\x01\x00", want: detector.Type{Extension: "gif", MIME: "image/gif"}},
		{name: "json ignored by default", data: `{"name": "whatfile", "tags": [1, 2]}`, want: detector.Unknown},
		{name: "json with text", opts: []Option{WithText()}, data: `{"name": "whatfile", "tags": [1, 2]}`, want: detector.Type{Extension: "json", MIME: "application/json"}},
		{name: "plain text", opts: []Option{WithText()}, data: "just words\n", want: detector.Unknown},
		{name: "empty", data: "", want: detector.Unknown},
		{name: "random bytes", data: "\x01\x02\x03\x04\x05\x06\x07\x08", want: detector.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.opts...).Detect(detector.WindowFromBytes([]byte(tt.data)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_InChain(t *testing.T) {
	data := []byte(`{"version": 1}`)

	got, err := detector.DetectBytes(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, got.IsUnknown(), "built-in chain has no json signature")

	got, err = detector.DetectBytes(context.Background(), data, detector.WithDetectors(New(WithText())))
	require.NoError(t, err)
	assert.Equal(t, "json", got.Extension)
	assert.Equal(t, "mimetype", New().Name())
}
