package chatclient

import (
	"context"

	"volunteer_chat/internal/domain"
)

// Send enqueues content on the timeline, posts it and settles the entry as
// confirmed or failed. The returned entry reflects the settled state.
func (c *Client) Send(ctx context.Context, tl *Timeline, content string, replyToID *int64) (LocalMessage, error) {
	lm := tl.Enqueue(content, replyToID)
	return c.deliver(ctx, tl, lm)
}

// Resend retries a failed entry under its original temp id.
func (c *Client) Resend(ctx context.Context, tl *Timeline, tempID string) (LocalMessage, error) {
	lm, err := tl.Retry(tempID)
	if err != nil {
		return LocalMessage{}, err
	}
	return c.deliver(ctx, tl, lm)
}

func (c *Client) deliver(ctx context.Context, tl *Timeline, lm LocalMessage) (LocalMessage, error) {
	tempID := lm.TempID
	msg, err := c.SendMessage(ctx, tl.ConversationID(), SendRequest{
		Content:   lm.Content,
		ReplyToID: lm.ReplyToID,
		ClientID:  &tempID,
	})
	if err != nil {
		tl.Fail(tempID, err)
		lm.Status = domain.MessageFailed
		lm.Error = err.Error()
		return lm, err
	}

	tl.Confirm(tempID, msg)
	confirmed := FromServer(msg)
	if confirmed.TempID == "" {
		confirmed.TempID = tempID
	}
	return confirmed, nil
}
