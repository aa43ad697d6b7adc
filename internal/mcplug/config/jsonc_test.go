package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripComments_LineComment(t *testing.T) {
	in := []byte("{\n  \"a\": 1, // trailing comment\n  \"b\": 2\n}")
	out := StripComments(in)
	assert.NotContains(t, string(out), "trailing comment")
	assert.Contains(t, string(out), `"a": 1`)
	assert.Contains(t, string(out), `"b": 2`)
}

func TestStripComments_BlockComment(t *testing.T) {
	in := []byte("{ /* block\nspanning lines */ \"a\": 1 }")
	out := StripComments(in)
	assert.NotContains(t, string(out), "block")
	assert.Contains(t, string(out), `"a": 1`)
}

func TestStripComments_PreservesStringLiterals(t *testing.T) {
	in := []byte(`{"url": "http://example.com // not a comment"}`)
	out := StripComments(in)
	assert.Contains(t, string(out), "http://example.com // not a comment")
}

func TestStripComments_EscapedQuoteInString(t *testing.T) {
	in := []byte(`{"a": "she said \"hi // there\""}`)
	out := StripComments(in)
	assert.Contains(t, string(out), `she said \"hi // there\"`)
}

func TestStripComments_SlashInsideStringNotTreatedAsCommentStart(t *testing.T) {
	in := []byte(`{"path": "/usr/local/bin"} // real comment`)
	out := StripComments(in)
	assert.Contains(t, string(out), `"/usr/local/bin"`)
	assert.NotContains(t, string(out), "real comment")
}
