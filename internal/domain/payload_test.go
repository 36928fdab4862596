package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_ValidSpans(t *testing.T) {
	p := &Payload{
		Text: "salom 💎 dunyo",
		Spans: []TextSpan{
			{Kind: SpanBold, Offset: 0, Length: 5},
			{Kind: SpanItalic, Offset: 6, Length: 2},
			{Kind: SpanCode, Offset: 10, Length: 50},
			{Kind: SpanStrike, Offset: -1, Length: 2},
			{Kind: SpanSpoiler, Offset: 3, Length: 0},
		},
	}

	spans := p.ValidSpans()

	require.Len(t, spans, 2)
	assert.Equal(t, SpanBold, spans[0].Kind)
	assert.Equal(t, SpanItalic, spans[1].Kind)
}

func TestPayload_Empty(t *testing.T) {
	var nilPayload *Payload

	assert.True(t, nilPayload.Empty())
	assert.True(t, (&Payload{}).Empty())
	assert.False(t, (&Payload{Text: "hi"}).Empty())
	assert.False(t, (&Payload{MediaPath: "/tmp/x.webp"}).Empty())
}

func TestPayload_Cleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sticker.webp")
	require.NoError(t, os.WriteFile(path, []byte("webp"), 0o600))

	p := &Payload{MediaPath: path, MediaKind: MediaSticker}
	require.NoError(t, p.Cleanup())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second cleanup is a no-op
	assert.NoError(t, p.Cleanup())
}
