package domain

import (
	"bytes"
	"encoding/json"
)

// ContentKind discriminates the note content union.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// Content is a note's payload: either a block of text or an image URL.
// Storage may hand back a structured object, a JSON-encoded string, or a bare
// string; ParseContent coerces all of them, so rendering code never has to.
type Content struct {
	Kind ContentKind
	Text string
	URL  string
}

// TextContent returns a text-variant payload.
func TextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

// ImageContent returns an image-variant payload.
func ImageContent(url string) Content {
	return Content{Kind: ContentImage, URL: url}
}

// contentJSON is the persisted shape, matching what was historically written
// by every client revision.
type contentJSON struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == ContentImage {
		return json.Marshal(contentJSON{Type: "image", URL: c.URL})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{Text: c.Text})
}

func (c *Content) UnmarshalJSON(data []byte) error {
	*c = ParseContent(data)
	return nil
}

// ParseContent defensively coerces a raw content payload into the tagged
// union. It never fails: anything unrecognizable becomes empty text.
func ParseContent(raw []byte) Content {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return TextContent("")
	}

	var obj contentJSON
	if err := json.Unmarshal(raw, &obj); err == nil && raw[0] == '{' {
		if obj.Type == "image" && obj.URL != "" {
			return ImageContent(obj.URL)
		}
		return TextContent(obj.Text)
	}

	// A JSON string: either a bare text payload or a JSON document that was
	// double-encoded on an older write path.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		trimmed := bytes.TrimSpace([]byte(s))
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return ParseContent(trimmed)
		}
		return TextContent(s)
	}

	// Bare unquoted string straight from storage.
	return TextContent(string(raw))
}
