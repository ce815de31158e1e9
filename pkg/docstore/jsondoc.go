package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RawDocument is a JSON document split into its top-level fields.
type RawDocument map[string]json.RawMessage

// EncodeJSON converts doc to a RawDocument. A missing or null "_id" is filled
// with a new UUID string.
func EncodeJSON(doc any) (string, RawDocument, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode document: %w", err)
	}

	var raw RawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if raw == nil {
		return "", nil, fmt.Errorf("document must be a JSON object")
	}

	var id string
	if v, ok := raw[IDField]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &id); err != nil {
			return "", nil, fmt.Errorf("%s must be a string: %w", IDField, err)
		}
	}
	if id == "" {
		id = uuid.NewString()
		idJSON, _ := json.Marshal(id)
		raw[IDField] = idJSON
	}

	return id, raw, nil
}

// Bytes marshals the document.
func (d RawDocument) Bytes() ([]byte, error) {
	return json.Marshal(map[string]json.RawMessage(d))
}

// ID returns the "_id" of the document.
func (d RawDocument) ID() string {
	var id string
	if v, ok := d[IDField]; ok {
		_ = json.Unmarshal(v, &id)
	}
	return id
}

// Matches reports whether every filter field equals the document field. A nil
// filter value matches a missing or null field.
func (d RawDocument) Matches(filter Filter) (bool, error) {
	for field, want := range filter {
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return false, fmt.Errorf("encode filter %s: %w", field, err)
		}
		got, ok := d[field]
		if !ok || isNull(got) {
			if isNull(wantJSON) {
				continue
			}
			return false, nil
		}
		if !jsonEqual(got, wantJSON) {
			return false, nil
		}
	}
	return true, nil
}

// Apply overwrites top-level fields.
func (d RawDocument) Apply(set Fields) error {
	for field, value := range set {
		if field == IDField {
			return fmt.Errorf("%s is immutable", IDField)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", field, err)
		}
		d[field] = data
	}
	return nil
}

// Field returns the compacted JSON of a field, or nil when missing or null.
func (d RawDocument) Field(name string) []byte {
	v, ok := d[name]
	if !ok || isNull(v) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return v
	}
	return buf.Bytes()
}

// DecodeJSON unmarshals a stored document into out. Numbers decoded into
// interface values keep their literal form.
func DecodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// FilterJSON marshals a filter for backends that match on JSON containment.
func FilterJSON(filter Filter) ([]byte, error) {
	if len(filter) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(filter))
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func jsonEqual(a, b []byte) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
