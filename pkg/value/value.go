// Package value defines the cell values that flow through the cast and column
// pipeline. A cell is either a Raw value, still untyped, or a Payload that some
// stage already turned into a render-ready structure carrying a type
// discriminator. Later stages check the variant instead of probing map shapes.
package value

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Value is the closed set of cell representations: Raw or Payload.
type Value interface {
	isValue()
}

// Raw wraps a value that no stage has structured yet.
type Raw struct {
	V any
}

func (Raw) isValue() {}

// MarshalJSON encodes the wrapped value directly.
func (r Raw) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.V)
}

// MarshalYAML encodes the wrapped value directly.
func (r Raw) MarshalYAML() (any, error) {
	return r.V, nil
}

// EncodeMsgpack encodes the wrapped value directly.
func (r Raw) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(r.V)
}

// Payload is a formatted cell. Type is the discriminator the rendering layer
// switches on ("badge", "currency", "date", ...). Fields never contains "type".
type Payload struct {
	Type   string
	Fields map[string]any
}

func (Payload) isValue() {}

// NewPayload builds a payload from alternating key/value pairs. Nil values are
// skipped so optional fields stay absent on the wire.
func NewPayload(typ string, kv ...any) Payload {
	p := Payload{Type: typ, Fields: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || key == "type" || kv[i+1] == nil {
			continue
		}
		p.Fields[key] = kv[i+1]
	}
	return p
}

// With returns a copy of p with key set. A nil value removes the key. The
// receiver's fields are never modified, so payloads held by a cache can be
// refined safely.
func (p Payload) With(key string, v any) Payload {
	if key == "type" {
		return p
	}
	fields := make(map[string]any, len(p.Fields)+1)
	for k, existing := range p.Fields {
		fields[k] = existing
	}
	if v == nil {
		delete(fields, key)
	} else {
		fields[key] = v
	}
	p.Fields = fields
	return p
}

// Get returns a field of the payload.
func (p Payload) Get(key string) (any, bool) {
	if key == "type" {
		return p.Type, p.Type != ""
	}
	v, ok := p.Fields[key]
	return v, ok
}

// Map flattens the payload into the wire shape {"type": ..., fields...}.
func (p Payload) Map() map[string]any {
	out := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		out[k] = v
	}
	out["type"] = p.Type
	return out
}

// Keys returns the sorted field names, "type" included.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields)+1)
	keys = append(keys, "type")
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys[1:])
	return keys
}

// MarshalJSON encodes the flattened wire shape.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// MarshalYAML encodes the flattened wire shape.
func (p Payload) MarshalYAML() (any, error) {
	return p.Map(), nil
}

// EncodeMsgpack encodes the flattened wire shape.
func (p Payload) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(p.Map())
}

// String is used by log lines and the terminal preview.
func (p Payload) String() string {
	return fmt.Sprintf("%s%v", p.Type, p.Fields)
}

// Of classifies v. Values that already are a Value are returned unchanged; a
// *Payload is dereferenced; anything else becomes Raw.
func Of(v any) Value {
	switch t := v.(type) {
	case Payload:
		return t
	case *Payload:
		if t == nil {
			return Raw{}
		}
		return *t
	case Raw:
		return t
	case Value:
		return t
	default:
		return Raw{V: v}
	}
}

// Unwrap returns the plain Go value for v: the wrapped value for Raw and the
// flattened map for Payload.
func Unwrap(v Value) any {
	switch t := v.(type) {
	case Raw:
		return t.V
	case Payload:
		return t.Map()
	default:
		return nil
	}
}

// IsPayload reports whether v is already structured.
func IsPayload(v any) bool {
	_, ok := Of(v).(Payload)
	return ok
}
