package cce

import "strings"

// ContentKind discriminates the pre-linguistic Content union. Thoughts are
// built from patterns, not words; language, if any, is layered on later by a
// component this engine never owns.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentRaw
	ContentSymbol
	ContentRelation
	ContentComposite
)

// Content is a tagged union of pre-linguistic thought material: raw byte
// patterns, abstract symbols, subject-predicate-object relations, or a
// composite of any of the above.
type Content struct {
	Kind ContentKind

	Raw []byte

	SymbolID   string
	SymbolData []byte

	Subject   *Content
	Predicate string
	Object    *Content

	Composite []Content
}

// NewRawContent builds raw binary content.
func NewRawContent(data []byte) Content {
	return Content{Kind: ContentRaw, Raw: append([]byte(nil), data...)}
}

// NewSymbolContent builds an abstract, pre-linguistic symbol.
func NewSymbolContent(id string, data []byte) Content {
	return Content{Kind: ContentSymbol, SymbolID: id, SymbolData: append([]byte(nil), data...)}
}

// NewRelationContent builds a subject-predicate-object relation.
func NewRelationContent(subject Content, predicate string, object Content) Content {
	return Content{
		Kind:      ContentRelation,
		Subject:   &subject,
		Predicate: predicate,
		Object:    &object,
	}
}

// NewCompositeContent joins several content elements.
func NewCompositeContent(items []Content) Content {
	return Content{Kind: ContentComposite, Composite: items}
}

// IsEmpty reports whether the content carries no material at all.
func (c Content) IsEmpty() bool {
	return c.Kind == ContentEmpty
}

// IsEmbeddable reports whether the content has enough semantic structure for
// an embedding model to act on. Raw and Symbol content are pre-linguistic
// patterns with no semantic meaning; only relations and composites (which
// may contain relations) carry embeddable predicates.
func (c Content) IsEmbeddable() bool {
	return c.Kind == ContentRelation || c.Kind == ContentComposite
}

// ToEmbeddingText extracts text suitable for feeding an embedding model, or
// returns ("", false) for non-embeddable content (Symbol, Raw, Empty).
// Relations contribute their predicate (always semantic, e.g. "causes");
// composites join the embeddable text of their embeddable children.
func (c Content) ToEmbeddingText() (string, bool) {
	switch c.Kind {
	case ContentSymbol, ContentRaw, ContentEmpty:
		return "", false

	case ContentRelation:
		subj, _ := c.Subject.ToEmbeddingText()
		obj, _ := c.Object.ToEmbeddingText()
		text := strings.TrimSpace(strings.Join(filterEmpty(subj, c.Predicate, obj), " "))
		if text == "" || text == c.Predicate {
			return c.Predicate, true
		}
		return text, true

	case ContentComposite:
		var parts []string
		for _, item := range c.Composite {
			if text, ok := item.ToEmbeddingText(); ok {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true

	default:
		return "", false
	}
}

func filterEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
