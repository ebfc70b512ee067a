package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHTML(t *testing.T) {
	assert.Equal(t, "First\nSecond", SanitizeHTML("<p>First</p><p>Second</p>"))
	assert.Equal(t, "plain", SanitizeHTML("plain"))
	assert.Equal(t, "", SanitizeHTML("<script>alert(1)</script>"))
}

func TestRenderCommentHTML(t *testing.T) {
	out := RenderCommentHTML("<p>Hello <strong>world</strong></p>")
	assert.Contains(t, out, "**world**")

	out = RenderCommentHTML(`<p>See <a href="https://example.com">the docs</a></p>`)
	assert.Contains(t, out, "https://example.com")

	out = RenderCommentHTML("<script>alert(1)</script><p>safe</p>")
	assert.NotContains(t, out, "alert")
	assert.Contains(t, out, "safe")
}

func TestXXH3Hashing(t *testing.T) {
	assert.Equal(t, XXH3FromBytes([]byte("hello")), XXH3Hash("hello"))
	assert.NotEqual(t, XXH3Hash("hello"), XXH3Hash("world"))
	assert.NotEmpty(t, XXH3Hash(""))
}
