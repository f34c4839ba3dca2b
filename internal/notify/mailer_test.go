package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/config"
)

func TestRenderUsesCRLF(t *testing.T) {
	raw := string(Render("noreply@devlab.local", Message{To: "ana@x.com", Subject: "Oi", Body: "a\nb"}))
	assert.Contains(t, raw, "To: ana@x.com\r\n")
	assert.Contains(t, raw, "Subject: Oi\r\n")
	assert.Contains(t, raw, "\r\n\r\na\r\nb")
}

func TestNewPicksLogMailerWithoutHost(t *testing.T) {
	m := New(config.MailConfig{}, zap.NewNop())
	_, ok := m.(*LogMailer)
	assert.True(t, ok)
	require.NoError(t, m.Send(context.Background(), Message{To: "x@y"}))

	_, ok = New(config.MailConfig{Host: "smtp.local", Port: 25}, zap.NewNop()).(*SMTPMailer)
	assert.True(t, ok)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), Message{To: "a"}))
	r.Err = errors.New("down")
	assert.Error(t, r.Send(context.Background(), Message{To: "b"}))
	assert.Len(t, r.Messages(), 1)
}
