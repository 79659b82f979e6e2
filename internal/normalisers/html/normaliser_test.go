package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToText_StripsTags(t *testing.T) {
	in := `<html><head><title>ignored</title></head><body><p>Access reviews run <b>quarterly</b>.</p></body></html>`

	assert.Equal(t, "Access reviews run quarterly.", ToText(in))
}

func TestToText_BlockElementsBecomeParagraphs(t *testing.T) {
	in := `<p>First paragraph.</p><p>Second paragraph.</p>`

	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", ToText(in))
}

func TestToText_RemovesScriptAndStyle(t *testing.T) {
	in := `<style>p { color: red }</style><p>kept</p><script>alert("x")</script>`

	assert.Equal(t, "kept", ToText(in))
}

func TestToText_DecodesEntities(t *testing.T) {
	in := `<p>Fire &amp; safety &mdash; annex &lt;3&gt;</p>`

	assert.Equal(t, "Fire & safety — annex <3>", ToText(in))
}

func TestToText_ListItems(t *testing.T) {
	in := `<ul><li>review access</li><li>rotate keys</li></ul>`

	out := ToText(in)
	assert.Contains(t, out, "review access")
	assert.Contains(t, out, "rotate keys")
}

func TestToText_PlainTextPassesThrough(t *testing.T) {
	in := "Incident summary.\n\nRoot cause was a misconfigured rule."

	assert.Equal(t, in, ToText(in))
}

func TestToText_EmptyResult(t *testing.T) {
	assert.Equal(t, "", ToText(`<div><img src="x.png"/></div>`))
	assert.Equal(t, "", ToText("   "))
}

func TestToText_CollapsesWhitespace(t *testing.T) {
	in := "<p>spaced    out\ttext</p>\n\n\n\n<p>next</p>"

	assert.Equal(t, "spaced out text\n\nnext", ToText(in))
}
