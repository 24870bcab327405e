package opsfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts entries as message attachments.
type Slack struct {
	client    slackClient
	channelID string
}

// NewSlack returns a Slack feed for a bot token and channel, or nil when
// either is empty.
func NewSlack(botToken, channelID string) *Slack {
	if botToken == "" || channelID == "" {
		return nil
	}
	return &Slack{client: slackapi.New(botToken), channelID: channelID}
}

// Post implements Feed.
func (s *Slack) Post(ctx context.Context, e Entry) {
	err := backoff(ctx, func() error {
		_, _, err := s.client.PostMessageContext(ctx, s.channelID, slackOptions(e)...)
		return err
	}, slackRateLimit)
	if err != nil {
		logFailure("slack", e, fmt.Errorf("post message: %w", err))
	}
}

func slackRateLimit(err error) (time.Duration, bool) {
	var rle *slackapi.RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// slackOptions translates an Entry into Slack MsgOptions.
func slackOptions(e Entry) []slackapi.MsgOption {
	att := slackapi.Attachment{
		Title:    e.Title,
		Text:     e.Body,
		Color:    e.Color,
		Fallback: e.Title,
	}
	for _, f := range e.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(e.Title, false),
		slackapi.MsgOptionAttachments(att),
	}
}
