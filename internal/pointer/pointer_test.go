package pointer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripPreservesVariantFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	cases := []struct {
		name string
		ptr  Pointer
	}{
		{
			name: "text range",
			ptr:  &TextRange{DocumentID: "doc-1", From: 10, To: 20, Text: "hello world", CreatedAt: created},
		},
		{
			name: "text range without timestamp",
			ptr:  &TextRange{DocumentID: "doc-1", From: 0, To: 3, Text: "abc"},
		},
		{
			name: "section",
			ptr: &Section{
				DocumentID:      "item-9",
				ItemID:          "item-9",
				SectionPath:     "details.pricing",
				ViewScope:       "full",
				InteractionMode: "review",
				ContentType:     "table",
				CreatedAt:       created,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := Serialize(tc.ptr)
			require.NoError(t, err)
			assert.Equal(t, SchemaVersion, record["schemaVersion"])

			roundtrip, err := Deserialize(record)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.ptr, roundtrip); diff != "" {
				t.Errorf("round-trip mismatch (-original +roundtrip):\n%s", diff)
			}
			assert.True(t, Equal(tc.ptr, roundtrip))
		})
	}
}

// A section without a DocumentID is addressed through its ItemID, so the
// record carries the ItemID and the decoded pointer is the normalized form.
func TestRoundTripNormalizesSectionDocument(t *testing.T) {
	bare := &Section{ItemID: "item-9", SectionPath: "details.pricing"}

	record, err := Serialize(bare)
	require.NoError(t, err)
	assert.Equal(t, "item-9", record["documentId"])

	roundtrip, err := Deserialize(record)
	require.NoError(t, err)
	assert.True(t, Equal(bare, roundtrip))

	normalized := bare.Clone()
	normalized.DocumentID = "item-9"
	if diff := cmp.Diff(normalized, roundtrip); diff != "" {
		t.Errorf("expected the normalized section (-want +got):\n%s", diff)
	}

	again, err := Serialize(roundtrip)
	require.NoError(t, err)
	second, err := Deserialize(again)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(roundtrip, second), "normalized sections round-trip exactly")
}

func TestMarshalUnmarshalJSON(t *testing.T) {
	original := &TextRange{DocumentID: "doc-1", From: 4, To: 9, Text: "quick"}
	raw, err := Marshal(original)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "text-range", fields["type"])
	assert.Equal(t, float64(SchemaVersion), fields["schemaVersion"])

	decoded, err := Unmarshal(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(Pointer(original), decoded); diff != "" {
		t.Errorf("unmarshal mismatch (-want +got):\n%s", diff)
	}
}

func TestDeserializeRejectsMalformedRecords(t *testing.T) {
	cases := []struct {
		name   string
		record Record
	}{
		{name: "nil record", record: nil},
		{name: "missing type", record: Record{"documentId": "doc-1", "from": 1, "to": 2}},
		{name: "unknown type", record: Record{"type": "pixel", "documentId": "doc-1"}},
		{name: "missing document", record: Record{"type": "text-range", "from": 1, "to": 2}},
		{name: "text range without bounds", record: Record{"type": "text-range", "documentId": "doc-1"}},
		{name: "fractional offset", record: Record{"type": "text-range", "documentId": "doc-1", "from": 1.5, "to": 2}},
		{name: "section without path", record: Record{"type": "section", "documentId": "item-1", "itemId": "item-1"}},
		{name: "future schema", record: Record{"schemaVersion": 2, "type": "text-range", "documentId": "doc-1", "from": 1, "to": 2}},
		{name: "bad timestamp", record: Record{"type": "text-range", "documentId": "doc-1", "from": 1, "to": 2, "timestamp": "yesterday"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Deserialize(tc.record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPointer), "expected INVALID_POINTER, got %v", err)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, CodeInvalidPointer, perr.Code)
		})
	}
}

func TestDeserializeAcceptsUnversionedRecord(t *testing.T) {
	ptr, err := Deserialize(Record{"type": "text-range", "documentId": "doc-1", "from": 2, "to": 5, "text": "abc"})
	require.NoError(t, err)
	assert.Equal(t, &TextRange{DocumentID: "doc-1", From: 2, To: 5, Text: "abc"}, ptr)
}

func TestSerializeRejectsNil(t *testing.T) {
	var typed *TextRange
	_, err := Serialize(typed)
	assert.ErrorIs(t, err, ErrInvalidPointer)

	_, err = Serialize(nil)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestEqualIsStructural(t *testing.T) {
	a := &TextRange{DocumentID: "doc-1", From: 5, To: 15, Text: "fifth char", CreatedAt: time.Now()}
	b := &TextRange{DocumentID: "doc-1", From: 5, To: 15, Text: "fifth char", CreatedAt: time.Now().Add(time.Second)}
	assert.True(t, Equal(a, b), "distinct objects with the same anchor must be equal")
	assert.True(t, Equal(a, a.Clone()))

	assert.False(t, Equal(a, &TextRange{DocumentID: "doc-1", From: 5, To: 16}))
	assert.False(t, Equal(a, &TextRange{DocumentID: "doc-2", From: 5, To: 15}))
	assert.False(t, Equal(a, &Section{DocumentID: "doc-1", ItemID: "doc-1", SectionPath: "5"}))
	assert.False(t, Equal(a, nil))
	assert.False(t, Equal(nil, nil))

	s1 := &Section{ItemID: "item-1", SectionPath: "summary", ViewScope: "full"}
	s2 := &Section{DocumentID: "item-1", ItemID: "item-1", SectionPath: "summary", ViewScope: "full"}
	assert.True(t, Equal(s1, s2), "section document defaults to its item")
	assert.False(t, Equal(s1, &Section{ItemID: "item-1", SectionPath: "summary", ViewScope: "compact"}))
}

func TestKeyDoesNotCollideAcrossFieldBoundaries(t *testing.T) {
	a := &Section{ItemID: "a", SectionPath: "b.c"}
	b := &Section{ItemID: "a.b", SectionPath: "c", DocumentID: "a"}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestIntersects(t *testing.T) {
	one := &TextRange{DocumentID: "doc", From: 1, To: 2}
	two := &TextRange{DocumentID: "doc", From: 3, To: 4}
	assert.True(t, Intersects([]Pointer{one, two}, []Pointer{&TextRange{DocumentID: "doc", From: 3, To: 4}}))
	assert.False(t, Intersects([]Pointer{one}, []Pointer{two}))
	assert.False(t, Intersects(nil, []Pointer{two}))
}

func TestCloneAllIsIndependent(t *testing.T) {
	src := []Pointer{&TextRange{DocumentID: "doc", From: 1, To: 2, Text: "x"}}
	dst := CloneAll(src)
	dst[0].(*TextRange).From = 99
	assert.Equal(t, 1, src[0].(*TextRange).From)
	assert.Nil(t, CloneAll(nil))
}
