package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Content
		want string
	}{
		{"zero value", Content{}, `""`},
		{"text", Text("hello"), `"hello"`},
		{"null", Null(), `null`},
		{"empty parts", Parts(), `[]`},
		{"parts", Parts("a", TextBlock("b")), `["a",{"text":"b","type":"text"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))

			var back Content
			require.NoError(t, json.Unmarshal(raw, &back))
			again, err := json.Marshal(back)
			require.NoError(t, err)
			assert.JSONEq(t, string(raw), string(again))
		})
	}
}

func TestContentRejectsObjects(t *testing.T) {
	var c Content
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &c))
}

func TestPartsCopiesInput(t *testing.T) {
	src := []any{"a", "b"}
	c := Parts(src...)
	src[0] = "changed"
	assert.Equal(t, "a", c.Parts()[0])
}

func TestResponseAlwaysSerializesThinkingAndSignature(t *testing.T) {
	raw, err := json.Marshal(Response{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"","thinking":"","signature":""}`, string(raw))
}

func TestBlockHelpers(t *testing.T) {
	assert.Equal(t, BlockImageURL, BlockType(Block{"type": "image_url"}))
	assert.Equal(t, "", BlockType("plain"))

	text, ok := BlockTextOf(TextBlock("hi"))
	assert.True(t, ok)
	assert.Equal(t, "hi", text)

	text, ok = BlockTextOf("bare")
	assert.True(t, ok)
	assert.Equal(t, "bare", text)

	_, ok = BlockTextOf(42)
	assert.False(t, ok)
}

func TestParseDataURL(t *testing.T) {
	mt, data, ok := ParseDataURL("data:image/png;base64,iVBORw0KGgo=")
	require.True(t, ok)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, "iVBORw0KGgo=", data)

	_, _, ok = ParseDataURL("https://example.com/a.png")
	assert.False(t, ok)
	_, _, ok = ParseDataURL("data:text/plain,hello")
	assert.False(t, ok)

	assert.Equal(t, "data:audio/mpeg;base64,AAA", DataURL("audio/mpeg", "AAA"))
}
