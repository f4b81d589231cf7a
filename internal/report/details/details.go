// Package details holds the nested content blocks attached to an audit result.
//
// A details document is a tagged union keyed by its "type" field. Decoding never
// fails on an unrecognised type: it yields an *Unknown node so the renderer can
// reject it at render time.
package details

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Type values carried in the "type" field.
const (
	TypeText  = "text"
	TypeBlock = "block"
	TypeList  = "list"
	TypeCards = "cards"
)

// Node is a details document node.
type Node interface {
	// Kind returns the wire "type" of the node.
	Kind() string

	detailsNode()
}

// Text is a plain string leaf.
type Text struct {
	Text string
}

// Block groups child nodes.
type Block struct {
	Items []Node
}

// List is a collapsible group with an optional header.
type List struct {
	Header Node
	Items  []Node
}

// Cards is a grid of title/value records with an optional header.
type Cards struct {
	Header Node
	Items  []Card
}

// Card is a single scorecard. It is a leaf record, not a Node.
type Card struct {
	Title   string  `json:"title"`
	Value   string  `json:"value"`
	Snippet *string `json:"snippet,omitempty"`
	Target  *string `json:"target,omitempty"`
}

// Unknown is produced when decoding a node whose type is not recognised.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (*Text) Kind() string      { return TypeText }
func (*Block) Kind() string     { return TypeBlock }
func (*List) Kind() string      { return TypeList }
func (*Cards) Kind() string     { return TypeCards }
func (u *Unknown) Kind() string { return u.Type }

func (*Text) detailsNode()    {}
func (*Block) detailsNode()   {}
func (*List) detailsNode()    {}
func (*Cards) detailsNode()   {}
func (*Unknown) detailsNode() {}

type envelope struct {
	Type   string            `json:"type"`
	Text   *string           `json:"text,omitempty"`
	Header json.RawMessage   `json:"header,omitempty"`
	Items  []json.RawMessage `json:"items,omitempty"`
}

// Decode parses a single details node from JSON.
func Decode(data []byte) (Node, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode details node: %w", err)
	}

	switch env.Type {
	case TypeText:
		if env.Text == nil {
			return nil, fmt.Errorf("details node of type %q is missing text", env.Type)
		}

		return &Text{Text: *env.Text}, nil
	case TypeBlock:
		items, err := decodeItems(env.Items)
		if err != nil {
			return nil, err
		}

		return &Block{Items: items}, nil
	case TypeList:
		header, err := decodeHeader(env.Header)
		if err != nil {
			return nil, err
		}

		items, err := decodeItems(env.Items)
		if err != nil {
			return nil, err
		}

		return &List{Header: header, Items: items}, nil
	case TypeCards:
		header, err := decodeHeader(env.Header)
		if err != nil {
			return nil, err
		}

		cards := make([]Card, 0, len(env.Items))
		for i, raw := range env.Items {
			var card Card
			if err := json.Unmarshal(raw, &card); err != nil {
				return nil, fmt.Errorf("failed to decode card %d: %w", i, err)
			}
			cards = append(cards, card)
		}

		return &Cards{Header: header, Items: cards}, nil
	default:
		return &Unknown{Type: env.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}

func decodeHeader(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	header, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	return header, nil
}

func decodeItems(raws []json.RawMessage) ([]Node, error) {
	items := make([]Node, 0, len(raws))
	for i, raw := range raws {
		item, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Document wraps a Node so it can be embedded in JSON structs.
type Document struct {
	Node Node
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Node = nil
		return nil
	}

	n, err := Decode(data)
	if err != nil {
		return err
	}
	d.Node = n

	return nil
}
