package domain

import (
	"os"
	"unicode/utf16"
)

// SpanKind is a rich-text formatting type
type SpanKind string

const (
	SpanBold      SpanKind = "bold"
	SpanItalic    SpanKind = "italic"
	SpanUnderline SpanKind = "underline"
	SpanStrike    SpanKind = "strikethrough"
	SpanCode      SpanKind = "code"
	SpanPre       SpanKind = "pre"
	SpanTextLink  SpanKind = "text_link"
	SpanSpoiler   SpanKind = "spoiler"
)

// TextSpan is a formatting span. Offset and Length are in UTF-16 code units.
type TextSpan struct {
	Kind     SpanKind
	Offset   int
	Length   int
	URL      string
	Language string
}

// MediaKind is the type of a downloaded media payload
type MediaKind string

const (
	MediaSticker MediaKind = "sticker"
	MediaPhoto   MediaKind = "photo"
)

// Payload is what a job sends: text with spans, or a media file
type Payload struct {
	Text      string
	Spans     []TextSpan
	MediaPath string
	MediaKind MediaKind
}

// IsMedia reports whether the payload carries a file
func (p *Payload) IsMedia() bool {
	return p != nil && p.MediaPath != ""
}

// Empty reports whether there is nothing to send
func (p *Payload) Empty() bool {
	return p == nil || (p.Text == "" && p.MediaPath == "")
}

// Describe returns a short preview for confirmations
func (p *Payload) Describe() string {
	switch {
	case p == nil:
		return ""
	case p.MediaKind == MediaSticker:
		return "🖼 Stiker"
	case p.MediaKind == MediaPhoto:
		if p.Text != "" {
			return "🖼 Rasm: " + p.Text
		}
		return "🖼 Rasm"
	default:
		return p.Text
	}
}

// ValidSpans drops spans that fall outside the text
func (p *Payload) ValidSpans() []TextSpan {
	if p == nil || len(p.Spans) == 0 {
		return nil
	}
	size := len(utf16.Encode([]rune(p.Text)))
	spans := make([]TextSpan, 0, len(p.Spans))
	for _, s := range p.Spans {
		if s.Offset < 0 || s.Length <= 0 || s.Offset+s.Length > size {
			continue
		}
		spans = append(spans, s)
	}
	return spans
}

// Cleanup removes the transient media file, if any
func (p *Payload) Cleanup() error {
	if !p.IsMedia() {
		return nil
	}
	if err := os.Remove(p.MediaPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
