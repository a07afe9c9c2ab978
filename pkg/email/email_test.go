package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := buildMessage("gbw@example.com", "a@example.com\r\nBcc: evil@example.com", "Hi", "body")
	assert.Contains(t, msg, "To: a@example.comBcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}

func TestDisabledSender(t *testing.T) {
	var s *Sender
	assert.False(t, s.Enabled())
	assert.Error(t, NewSender(SMTPConfig{}).SendEmail("a@example.com", "x", "y"))
}
