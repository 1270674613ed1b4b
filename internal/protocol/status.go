package protocol

import (
	"bytes"
	"encoding/json"
)

// Status is the decoded status response payload.
type Status struct {
	Version     Version         `json:"version"`
	Players     Players         `json:"players"`
	Description json.RawMessage `json:"description"`
	ForgeData   json.RawMessage `json:"forgeData,omitempty"`
	ModInfo     json.RawMessage `json:"modinfo,omitempty"`
	Favicon     *string         `json:"favicon,omitempty"`
}

// Version names the server software and its protocol number.
type Version struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

// Players carries the advertised counts and an optional roster sample.
type Players struct {
	Online int64    `json:"online"`
	Max    int64    `json:"max"`
	Sample []Player `json:"sample,omitempty"`
}

// Player is one roster sample entry.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseStatus decodes a status response JSON document.
func ParseStatus(raw string) (*Status, error) {
	var s Status
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// IsForge reports whether the status advertises Forge or legacy FML mod
// metadata.
func (s *Status) IsForge() bool {
	return jsonPresent(s.ForgeData) || jsonPresent(s.ModInfo)
}

// DescriptionText flattens the description chat component to plain text.
func (s *Status) DescriptionText() string {
	var c ChatObject
	if err := json.Unmarshal(s.Description, &c); err != nil {
		return ""
	}
	return c.Text()
}

func jsonPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ChatObject is a chat component in any of its three wire shapes: a
// component object, a list of components, or a bare JSON primitive.
type ChatObject struct {
	Object    *ChatComponent
	Array     []ChatObject
	Primitive *string
}

// ChatComponent is the object shape; nested components live in Extra.
type ChatComponent struct {
	Text  string       `json:"text"`
	Extra []ChatObject `json:"extra,omitempty"`
}

// UnmarshalJSON dispatches on the leading token.
func (c *ChatObject) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '{':
		c.Object = new(ChatComponent)
		return json.Unmarshal(trimmed, c.Object)
	case '[':
		return json.Unmarshal(trimmed, &c.Array)
	case '"':
		c.Primitive = new(string)
		return json.Unmarshal(trimmed, c.Primitive)
	default:
		// Non-string primitives (numbers, booleans, null) carry no text.
		return nil
	}
}

// Text concatenates the component's text and descends into extra, in order.
func (c ChatObject) Text() string {
	switch {
	case c.Object != nil:
		var buf bytes.Buffer
		buf.WriteString(c.Object.Text)
		for _, extra := range c.Object.Extra {
			buf.WriteString(extra.Text())
		}
		return buf.String()
	case c.Array != nil:
		var buf bytes.Buffer
		for _, item := range c.Array {
			buf.WriteString(item.Text())
		}
		return buf.String()
	case c.Primitive != nil:
		return *c.Primitive
	default:
		return ""
	}
}
