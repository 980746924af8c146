package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestPayloadJSONFlattensType(t *testing.T) {
	p := NewPayload("badge", "variant", "success", "label", "Ativo", "value", "active")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"badge","variant":"success","label":"Ativo","value":"active"}`, string(data))
}

func TestPayloadWithNilRemovesKey(t *testing.T) {
	p := NewPayload("text", "value", "x", "icon", nil)
	_, ok := p.Get("icon")
	assert.False(t, ok)

	p = p.With("value", nil)
	_, ok = p.Get("value")
	assert.False(t, ok)
}

func TestPayloadTypeCannotBeOverwritten(t *testing.T) {
	p := NewPayload("badge").With("type", "text")
	assert.Equal(t, "badge", p.Type)
	assert.Equal(t, []string{"type"}, p.Keys())
}

func TestOfClassifiesValues(t *testing.T) {
	p := NewPayload("date")
	assert.Equal(t, p, Of(p))
	assert.Equal(t, p, Of(&p))
	assert.Equal(t, Raw{V: 3}, Of(3))
	assert.Equal(t, Raw{V: "x"}, Of(Raw{V: "x"}))
	assert.True(t, IsPayload(p))
	assert.False(t, IsPayload("badge"))
	assert.False(t, IsPayload(map[string]any{"type": "badge"}))
}

func TestMsgpackUsesWireShape(t *testing.T) {
	p := NewPayload("currency", "formatted", "$1.00")
	data, err := msgpack.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &decoded))
	assert.Equal(t, "currency", decoded["type"])
	assert.Equal(t, "$1.00", decoded["formatted"])
}

func TestBool(t *testing.T) {
	truthy := []any{"sim", "1", true, 1, "yes", "TRUE", "on", float64(1)}
	for _, v := range truthy {
		b, ok := Bool(v)
		assert.True(t, ok, "%v should be boolean-like", v)
		assert.True(t, b, "%v should be truthy", v)
	}
	falsy := []any{"não", "0", false, 0, "no", "nao", "off"}
	for _, v := range falsy {
		b, ok := Bool(v)
		assert.True(t, ok, "%v should be boolean-like", v)
		assert.False(t, b, "%v should be falsy", v)
	}
	_, ok := Bool("maybe")
	assert.False(t, ok)
	_, ok = Bool(2)
	assert.False(t, ok)
}

func TestFloat(t *testing.T) {
	f, ok := Float("12.5")
	require.True(t, ok)
	assert.InDelta(t, 12.5, f, 0.0001)

	f, ok = Float(json.Number("7"))
	require.True(t, ok)
	assert.InDelta(t, 7.0, f, 0.0001)

	_, ok = Float("abc")
	assert.False(t, ok)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank("  "))
	assert.True(t, IsBlank([]any{}))
	assert.False(t, IsBlank(0))
	assert.False(t, IsBlank(false))
}
