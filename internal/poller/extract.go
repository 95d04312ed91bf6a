package poller

import (
	"encoding/json"
	"strings"

	"github.com/kiranshivaraju/a1gen/internal/a1"
)

// Kind tags the shape of a poll response's data field.
type Kind int

const (
	KindNone Kind = iota
	KindObject
	KindList
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindString:
		return "string"
	default:
		return "none"
	}
}

// Payload is the classified data field of a poll response. Exactly one of
// Object, List or Text is meaningful, selected by Kind.
type Payload struct {
	Kind   Kind
	Object map[string]any
	List   []any
	Text   string
}

// Classify extracts and tags the data field of doc.
func Classify(doc a1.Document) Payload {
	switch v := doc["data"].(type) {
	case map[string]any:
		return Payload{Kind: KindObject, Object: v}
	case a1.Document:
		return Payload{Kind: KindObject, Object: v}
	case []any:
		return Payload{Kind: KindList, List: v}
	case string:
		return Payload{Kind: KindString, Text: v}
	default:
		return Payload{Kind: KindNone}
	}
}

// URLs returns the result image URLs carried by the payload, in order, with
// empty values dropped. An object yields its images list, else its result
// list, else its imageUrl string.
func (p Payload) URLs() []string {
	switch p.Kind {
	case KindObject:
		candidate := p.Object["images"]
		if !truthy(candidate) {
			candidate = p.Object["result"]
		}
		if list, ok := candidate.([]any); ok {
			return listURLs(list)
		}
		if s, ok := p.Object["imageUrl"].(string); ok && s != "" {
			return []string{s}
		}
		return nil
	case KindList:
		return listURLs(p.List)
	case KindString:
		if p.Text == "" {
			return nil
		}
		return []string{p.Text}
	default:
		return nil
	}
}

// Status returns data.status for object payloads, "" otherwise.
func (p Payload) Status() string {
	if p.Kind != KindObject {
		return ""
	}
	s, _ := p.Object["status"].(string)
	return s
}

var terminalStatuses = map[string]bool{
	"success":  true,
	"finished": true,
	"done":     true,
}

// IsTerminal reports whether status ends polling. Comparison is case-insensitive.
func IsTerminal(status string) bool {
	return terminalStatuses[strings.ToLower(status)]
}

func listURLs(list []any) []string {
	var urls []string
	for _, item := range list {
		var u string
		switch v := item.(type) {
		case map[string]any:
			u = elementURL(v)
		case string:
			u = v
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func elementURL(obj map[string]any) string {
	if s, ok := obj["imageUrl"].(string); ok && s != "" {
		return s
	}
	s, _ := obj["url"].(string)
	return s
}

// truthy reports whether v is a present, non-empty JSON value.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
