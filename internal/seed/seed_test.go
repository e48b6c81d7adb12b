package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"margin/api/internal/app"
	"margin/api/internal/config"
	"margin/api/internal/logging"
	"margin/api/internal/pointer"
	"margin/api/internal/search"
	"margin/api/internal/store"
)

func newService() *app.Service {
	return app.New(config.Config{}, store.NewMemoryStore(), nil, logging.Discard())
}

func TestApplyDefaultFixture(t *testing.T) {
	fx, err := Load("")
	require.NoError(t, err)

	svc := newService()
	summary, err := Apply(context.Background(), svc, fx)
	require.NoError(t, err)

	want := Summary{Documents: 3, Threads: 4, Comments: 5, Resolved: 1}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	stats := svc.GetCommentStats()
	assert.Equal(t, 4, stats.TotalThreads)
	assert.Equal(t, 3, stats.ActiveThreads)
	assert.Equal(t, 1, stats.ResolvedThreads)
	assert.Equal(t, 5, stats.TotalComments)

	assert.Equal(t, []string{"button", "button-guidelines", "card-usage"}, svc.Documents())
	assert.Len(t, svc.GetThreadsByPointerType(pointer.TypeSection), 1)

	resp := svc.Search(search.Query{Text: "toolbars"})
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "primary variant once per view", resp.Results[0].Quote)
}

func TestApplyRecordsDraftsAndReplies(t *testing.T) {
	fx, err := Parse([]byte(`
[[documents]]
id = "doc"
text = "alpha beta gamma"

[[threads]]
document = "doc"
from = 6
to = 10

  [[threads.comments]]
  author = "ana"
  content = "rename?"
  draft = true

  [[threads.comments]]
  author = "ben"
  content = "keep it"
`))
	require.NoError(t, err)

	svc := newService()
	_, err = Apply(context.Background(), svc, fx)
	require.NoError(t, err)

	threads := svc.GetThreadsForDocument("doc")
	require.Len(t, threads, 1)
	tr := threads[0].Pointers[0].(*pointer.TextRange)
	assert.Equal(t, "beta", tr.Text)

	comments, err := svc.GetCommentsForThread(threads[0].ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, store.CommentDraft, comments[0].Status)
	assert.Equal(t, comments[0].ID, comments[1].ParentID)
	assert.Equal(t, []string{"ana", "ben"}, threads[0].Participants)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
[[documents]]
id = "doc"
body = "typo"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "documents.body")
}

func TestApplyErrors(t *testing.T) {
	cases := map[string]string{
		"unknown document": `
[[threads]]
document = "nowhere"
quote = "x"
  [[threads.comments]]
  author = "ana"
  content = "x"
`,
		"missing quote": `
[[documents]]
id = "doc"
text = "alpha"
[[threads]]
document = "doc"
quote = "omega"
  [[threads.comments]]
  author = "ana"
  content = "x"
`,
		"no comments": `
[[documents]]
id = "doc"
text = "alpha"
[[threads]]
document = "doc"
quote = "alpha"
`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			fx, err := Parse([]byte(raw))
			require.NoError(t, err)
			_, err = Apply(context.Background(), newService(), fx)
			require.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[documents]]\nid = \"doc\"\ntext = \"hi\"\n"), 0o600))

	fx, err := Load(path)
	require.NoError(t, err)
	require.Len(t, fx.Documents, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "read seed file"))
}

func TestFindQuoteCountsRunes(t *testing.T) {
	from, to, ok := findQuote("héllo wörld", "wörld")
	require.True(t, ok)
	assert.Equal(t, 6, from)
	assert.Equal(t, 11, to)
}
