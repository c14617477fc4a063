package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutHostIsDisabled(t *testing.T) {
	m := New(&config.Config{})
	err := m.Send(context.Background(), Message{To: []string{"a@test.com"}, Subject: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, ok := New(&config.Config{SMTPHost: "smtp.test", SMTPPort: 587}).(*SMTP)
	assert.True(t, ok)
}

func TestBuildAddsAttachment(t *testing.T) {
	msg := build("stok@test.com", Message{
		To:      []string{"kritik@test.com"},
		Subject: "Critical stock",
		Body:    "rapor ekte",
		Attachments: []Attachment{
			{Name: "kritik_stok.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: []byte("PK")},
		},
	})

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "To: kritik@test.com")
	assert.Contains(t, out, "Subject: Critical stock")
	assert.Contains(t, out, `filename="kritik_stok.xlsx"`)
	assert.Contains(t, out, "spreadsheetml")
}

func TestSMTPRejectsEmptyRecipients(t *testing.T) {
	s := New(&config.Config{SMTPHost: "smtp.test", SMTPPort: 587})
	assert.Error(t, s.Send(context.Background(), Message{Subject: "x"}))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), Message{Subject: "a"}))
	assert.Len(t, r.Messages(), 1)

	r.Err = errors.New("bağlantı yok")
	assert.Error(t, r.Send(context.Background(), Message{Subject: "b"}))
	assert.Len(t, r.Messages(), 1)
}
