package surface

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommentMarkType is the ProseMirror mark name carrying a commentId attr.
const CommentMarkType = "comment"

var textblocks = map[string]struct{}{
	"paragraph": {},
	"heading":   {},
	"codeBlock": {},
}

type pmWalker struct {
	text   strings.Builder
	size   int
	blocks int
	spans  []Mark
}

// ParseProseMirror decodes ProseMirror JSON and loads it with FromProseMirror.
func ParseProseMirror(id string, raw []byte) (*Buffer, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode prosemirror doc: %w", err)
	}
	return FromProseMirror(id, doc)
}

// FromProseMirror flattens a ProseMirror document into a Buffer. Textblocks
// are joined with a newline, hard breaks become newlines, and existing
// comment marks become buffer marks. Those marks keep the commentId the
// editor stored; they are foreign highlights that no thread in this process
// owns, and they still count as overlap for new comments.
func FromProseMirror(id string, doc map[string]any) (*Buffer, error) {
	if nodeType, _ := doc["type"].(string); nodeType != "doc" {
		return nil, fmt.Errorf("prosemirror root must be a doc node, got %q", nodeType)
	}
	w := &pmWalker{}
	w.walk(doc)

	buffer := NewBuffer(id, w.text.String())
	for _, m := range mergeSpans(w.spans) {
		if err := buffer.AddMark(m.From, m.To, m.CommentID); err != nil {
			return nil, fmt.Errorf("restore comment mark %s: %w", m.CommentID, err)
		}
	}
	return buffer, nil
}

func (w *pmWalker) walk(node map[string]any) {
	nodeType, _ := node["type"].(string)
	switch nodeType {
	case "text":
		text, _ := node["text"].(string)
		w.writeText(text, node["marks"])
	case "hardBreak":
		w.write("\n")
	default:
		if _, ok := textblocks[nodeType]; ok {
			if w.blocks > 0 {
				w.write("\n")
			}
			w.blocks++
		}
		items, _ := node["content"].([]any)
		for _, item := range items {
			if child, ok := item.(map[string]any); ok {
				w.walk(child)
			}
		}
	}
}

func (w *pmWalker) write(s string) {
	w.text.WriteString(s)
	w.size += len([]rune(s))
}

func (w *pmWalker) writeText(text string, marks any) {
	if text == "" {
		return
	}
	start := w.size
	w.write(text)
	items, _ := marks.([]any)
	for _, item := range items {
		mark, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if markType, _ := mark["type"].(string); markType != CommentMarkType {
			continue
		}
		attrs, _ := mark["attrs"].(map[string]any)
		commentID, _ := attrs["commentId"].(string)
		if commentID == "" {
			continue
		}
		w.spans = append(w.spans, Mark{CommentID: commentID, From: start, To: w.size})
	}
}

// mergeSpans joins touching spans of the same comment split across text
// nodes by other marks.
func mergeSpans(spans []Mark) []Mark {
	var merged []Mark
	open := make(map[string]int)
	for _, span := range spans {
		if idx, ok := open[span.CommentID]; ok && merged[idx].To == span.From {
			merged[idx].To = span.To
			continue
		}
		open[span.CommentID] = len(merged)
		merged = append(merged, span)
	}
	return merged
}
