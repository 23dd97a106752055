package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/pkg/logger"
)

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer("no-reply@example.org", logger.NewWithWriter(&buf, "info", "json"))

	err := m.Send(context.Background(), Message{To: "owner@example.org", Subject: "Featured placement ended", Body: "..."})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "owner@example.org")

	assert.Error(t, m.Send(context.Background(), Message{To: "nobody", Subject: "x"}))
	assert.Error(t, m.Send(context.Background(), Message{To: "a@b.c", Subject: " "}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.c", Subject: "x"}), context.Canceled)
}
