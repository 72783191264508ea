package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies what a card side holds.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Content is one side of a card: inline text or a reference to an image.
// It is a value type; edits replace it wholesale.
type Content struct {
	Kind  Kind
	Value string
	// AltText is only meaningful for images.
	AltText string
}

// Text returns text content.
func Text(value string) Content {
	return Content{Kind: KindText, Value: value}
}

// Image returns image content pointing at url. altText may be empty.
func Image(url, altText string) Content {
	return Content{Kind: KindImage, Value: url, AltText: altText}
}

// IsZero reports whether c carries no value.
func (c Content) IsZero() bool {
	return c.Value == ""
}

// Valid reports whether c is text or image content with a value.
func (c Content) Valid() bool {
	return (c.Kind == KindText || c.Kind == KindImage) && c.Value != ""
}

func (c Content) String() string {
	if c.Kind == KindImage {
		return fmt.Sprintf("image(%s)", c.Value)
	}
	return c.Value
}

type contentJSON struct {
	Type    string  `json:"type"`
	Value   *string `json:"value"`
	AltText string  `json:"alt_text,omitempty"`
}

// MarshalJSON encodes c as {"type", "value", "alt_text"?}. Text never carries alt_text.
func (c Content) MarshalJSON() ([]byte, error) {
	out := contentJSON{Value: &c.Value}
	switch c.Kind {
	case KindText:
		out.Type = string(KindText)
	case KindImage:
		out.Type = string(KindImage)
		out.AltText = c.AltText
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedContent, c.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes either the structured form or a bare string, which is
// read as text content.
func (c *Content) UnmarshalJSON(data []byte) error {
	parsed, err := ParseContent(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseContent decodes a serialized card side.
func ParseContent(data []byte) (Content, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Content{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
		}
		return Text(s), nil
	}

	var in contentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if in.Value == nil {
		return Content{}, fmt.Errorf("%w: missing value", ErrMalformedContent)
	}

	switch Kind(in.Type) {
	case KindText:
		return Text(*in.Value), nil
	case KindImage:
		return Image(*in.Value, in.AltText), nil
	default:
		return Content{}, fmt.Errorf("%w: unknown type %q", ErrMalformedContent, in.Type)
	}
}
