// Package seed loads demo documents and discussions from TOML and replays
// them through the commenting service.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"margin/api/internal/adapter"
	"margin/api/internal/app"
	"margin/api/internal/pointer"
	"margin/api/internal/store"
	"margin/api/internal/surface"
)

//go:embed default.toml
var defaultFixture []byte

type Fixture struct {
	Documents []Document `toml:"documents"`
	Items     []Item     `toml:"items"`
	Threads   []Thread   `toml:"threads"`
}

// Document is a text surface given either as plain text or as ProseMirror
// JSON.
type Document struct {
	ID          string `toml:"id"`
	Text        string `toml:"text"`
	ProseMirror string `toml:"prosemirror"`
}

type Item struct {
	ID              string    `toml:"id"`
	ViewScope       string    `toml:"viewScope"`
	InteractionMode string    `toml:"interactionMode"`
	Sections        []Section `toml:"sections"`
}

type Section struct {
	Path        string `toml:"path"`
	Content     string `toml:"content"`
	ContentType string `toml:"contentType"`
}

// Thread anchors to a document either by explicit range, by the first
// occurrence of Quote, or to an item section.
type Thread struct {
	Document   string    `toml:"document"`
	From       *int      `toml:"from"`
	To         *int      `toml:"to"`
	Quote      string    `toml:"quote"`
	Section    string    `toml:"section"`
	ResolvedBy string    `toml:"resolvedBy"`
	Comments   []Comment `toml:"comments"`
}

type Comment struct {
	Author  string `toml:"author"`
	Content string `toml:"content"`
	Draft   bool   `toml:"draft"`
}

type Summary struct {
	Documents int
	Threads   int
	Comments  int
	Resolved  int
}

// Load reads a fixture from path, or the built-in demo fixture when path is
// empty.
func Load(path string) (Fixture, error) {
	if path == "" {
		return Parse(defaultFixture)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture and rejects unknown keys.
func Parse(data []byte) (Fixture, error) {
	var fx Fixture
	meta, err := toml.Decode(string(data), &fx)
	if err != nil {
		return Fixture{}, fmt.Errorf("decode seed fixture: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Fixture{}, fmt.Errorf("unknown seed keys: %s", strings.Join(keys, ", "))
	}
	return fx, nil
}

// Apply builds the fixture's surfaces, registers an adapter for each and
// replays the threads through svc, so seeded data obeys the same rules as
// live traffic.
func Apply(ctx context.Context, svc *app.Service, fx Fixture, opts ...adapter.Option) (Summary, error) {
	var summary Summary
	texts := make(map[string]textDoc)
	items := make(map[string]*adapter.SectionAdapter)

	for _, doc := range fx.Documents {
		buf, err := buildBuffer(doc)
		if err != nil {
			return summary, err
		}
		a := adapter.NewTextAdapter(buf, opts...)
		svc.RegisterAdapter(a)
		texts[doc.ID] = textDoc{buf: buf, adapter: a}
		summary.Documents++
	}
	for _, item := range fx.Items {
		if item.ID == "" {
			return summary, fmt.Errorf("seed item without id")
		}
		view := surface.NewItemView(item.ID, item.ViewScope, item.InteractionMode)
		for _, section := range item.Sections {
			view.SetSection(section.Path, section.Content, section.ContentType)
		}
		a := adapter.NewSectionAdapter(view, opts...)
		svc.RegisterAdapter(a)
		items[item.ID] = a
		summary.Documents++
	}

	for i, th := range fx.Threads {
		p, err := anchor(th, texts, items)
		if err != nil {
			return summary, fmt.Errorf("seed thread %d: %w", i, err)
		}
		if len(th.Comments) == 0 {
			return summary, fmt.Errorf("seed thread %d: at least one comment is required", i)
		}
		thread, err := replay(ctx, svc, p, th.Comments)
		if err != nil {
			return summary, fmt.Errorf("seed thread %d: %w", i, err)
		}
		summary.Threads++
		summary.Comments += len(th.Comments)

		if th.ResolvedBy != "" {
			if _, err := svc.ResolveThread(ctx, thread.ID, th.ResolvedBy); err != nil {
				return summary, fmt.Errorf("seed thread %d: resolve: %w", i, err)
			}
			summary.Resolved++
		}
	}
	return summary, nil
}

func replay(ctx context.Context, svc *app.Service, p pointer.Pointer, comments []Comment) (store.Thread, error) {
	first := comments[0]
	thread, root, err := svc.Comment(ctx, p, first.Content, first.Author)
	if err != nil {
		return store.Thread{}, err
	}
	if first.Draft {
		if _, err := svc.SetCommentStatus(ctx, root.ID, string(store.CommentDraft)); err != nil {
			return store.Thread{}, err
		}
	}
	for _, c := range comments[1:] {
		if _, err := svc.Reply(ctx, thread.ID, root.ID, c.Content, c.Author, c.Draft); err != nil {
			return store.Thread{}, err
		}
	}
	return thread, nil
}

func buildBuffer(doc Document) (*surface.Buffer, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("seed document without id")
	}
	if strings.TrimSpace(doc.ProseMirror) != "" {
		buf, err := surface.ParseProseMirror(doc.ID, []byte(doc.ProseMirror))
		if err != nil {
			return nil, fmt.Errorf("seed document %s: %w", doc.ID, err)
		}
		return buf, nil
	}
	return surface.NewBuffer(doc.ID, doc.Text), nil
}

type textDoc struct {
	buf     *surface.Buffer
	adapter *adapter.TextAdapter
}

func anchor(th Thread, texts map[string]textDoc, items map[string]*adapter.SectionAdapter) (pointer.Pointer, error) {
	if a, ok := items[th.Document]; ok {
		return a.CreatePointerForSection(th.Section)
	}
	doc, ok := texts[th.Document]
	if !ok {
		return nil, fmt.Errorf("unknown document %q", th.Document)
	}
	if th.From != nil && th.To != nil {
		return doc.adapter.CreatePointerForRange(*th.From, *th.To)
	}
	if th.Quote == "" {
		return nil, fmt.Errorf("text thread needs from/to or quote")
	}
	from, to, ok := findQuote(doc.buf.Text(), th.Quote)
	if !ok {
		return nil, fmt.Errorf("quote %q not found in %s", th.Quote, th.Document)
	}
	return doc.adapter.CreatePointerForRange(from, to)
}

// findQuote locates the first occurrence of quote in rune offsets.
func findQuote(text, quote string) (int, int, bool) {
	idx := strings.Index(text, quote)
	if idx < 0 {
		return 0, 0, false
	}
	from := utf8.RuneCountInString(text[:idx])
	return from, from + utf8.RuneCountInString(quote), true
}
