package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(""))
	assert.Equal(t, "Weekly sync", Text("  Weekly sync \n"))
	assert.Equal(t, "Hello", Text("<p>Hello</p><script>alert('x')</script>"))
	assert.Equal(t, "Q&A session", Text("Q&A session"))
	assert.Equal(t, "bold move", Text(`<b onclick="x()">bold</b> move`))
}
