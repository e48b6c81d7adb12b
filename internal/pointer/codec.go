package pointer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaVersion is written into every serialized record. Records without a
// version are read as version 1.
const SchemaVersion = 1

const schemaURL = "pointer.schema.json"

//go:embed schema/pointer.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Record is the flat key-value shape a pointer takes on the wire.
type Record map[string]any

type wireRecord struct {
	SchemaVersion   int    `json:"schemaVersion,omitempty"`
	Type            Type   `json:"type"`
	DocumentID      string `json:"documentId"`
	Timestamp       string `json:"timestamp,omitempty"`
	From            *int   `json:"from,omitempty"`
	To              *int   `json:"to,omitempty"`
	Text            string `json:"text,omitempty"`
	ItemID          string `json:"itemId,omitempty"`
	SectionPath     string `json:"sectionPath,omitempty"`
	ViewScope       string `json:"viewScope,omitempty"`
	InteractionMode string `json:"interactionMode,omitempty"`
	ContentType     string `json:"contentType,omitempty"`
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add pointer schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Serialize flattens p into a Record.
func Serialize(p Pointer) (Record, error) {
	if IsNil(p) {
		return nil, InvalidPointer("pointer is required", nil)
	}
	record := Record{
		"schemaVersion": SchemaVersion,
		"type":          string(p.Type()),
		"documentId":    p.Document(),
	}
	switch v := p.(type) {
	case *TextRange:
		putTimestamp(record, v.CreatedAt)
		record["from"] = v.From
		record["to"] = v.To
		record["text"] = v.Text
	case *Section:
		putTimestamp(record, v.CreatedAt)
		record["itemId"] = v.ItemID
		record["sectionPath"] = v.SectionPath
		record["viewScope"] = v.ViewScope
		record["interactionMode"] = v.InteractionMode
		record["contentType"] = v.ContentType
	default:
		return nil, InvalidPointer("unsupported pointer type", map[string]any{"type": string(p.Type())})
	}
	return record, nil
}

// Deserialize validates record against the pointer schema and rebuilds the
// variant it describes.
func Deserialize(record Record) (Pointer, error) {
	if record == nil {
		return nil, InvalidPointer("record is required", nil)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, InvalidPointer("record is not serializable", map[string]any{"error": err.Error()})
	}
	return Unmarshal(raw)
}

// Marshal encodes p as the JSON form of its Record.
func Marshal(p Pointer) ([]byte, error) {
	record, err := Serialize(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

// Unmarshal decodes and validates the JSON form of a Record.
func Unmarshal(raw []byte) (Pointer, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, InvalidPointer("malformed pointer json", map[string]any{"error": err.Error()})
	}
	compiled, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("pointer schema: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return nil, InvalidPointer("pointer record does not match schema", map[string]any{"error": err.Error()})
	}

	var wire wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, InvalidPointer("malformed pointer record", map[string]any{"error": err.Error()})
	}
	if wire.SchemaVersion > SchemaVersion {
		return nil, InvalidPointer("unsupported schema version", map[string]any{"schemaVersion": wire.SchemaVersion})
	}
	createdAt, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return nil, InvalidPointer("malformed timestamp", map[string]any{"timestamp": wire.Timestamp})
	}

	switch wire.Type {
	case TypeTextRange:
		return &TextRange{
			DocumentID: wire.DocumentID,
			From:       *wire.From,
			To:         *wire.To,
			Text:       wire.Text,
			CreatedAt:  createdAt,
		}, nil
	case TypeSection:
		return &Section{
			DocumentID:      wire.DocumentID,
			ItemID:          wire.ItemID,
			SectionPath:     wire.SectionPath,
			ViewScope:       wire.ViewScope,
			InteractionMode: wire.InteractionMode,
			ContentType:     wire.ContentType,
			CreatedAt:       createdAt,
		}, nil
	default:
		return nil, InvalidPointer("unknown pointer type", map[string]any{"type": string(wire.Type)})
	}
}

func putTimestamp(record Record, ts time.Time) {
	if ts.IsZero() {
		return
	}
	record["timestamp"] = ts.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
