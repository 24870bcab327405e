// Package opsfeed posts short operator-facing lines about marketplace
// activity to Slack and Discord channels.
package opsfeed

import (
	"context"
	"log"
	"math"
	"time"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// Entry colors.
const (
	ColorInfo    = "#439fe0"
	ColorSuccess = "#36a64f"
	ColorWarning = "#daa038"
	ColorDanger  = "#d00000"
)

// Field is a short labeled value shown with an entry.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Entry is one line in the feed.
type Entry struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Feed accepts entries. Implementations log their own failures; Post never
// blocks the caller on a broken channel beyond ctx.
type Feed interface {
	Post(ctx context.Context, e Entry)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Post(context.Context, Entry) {}

// Multi fans an entry out to several feeds.
type Multi []Feed

func (m Multi) Post(ctx context.Context, e Entry) {
	for _, f := range m {
		f.Post(ctx, e)
	}
}

// New returns the feed for the configured channels.
func New(feeds ...Feed) Feed {
	var live Multi
	for _, f := range feeds {
		if f != nil {
			live = append(live, f)
		}
	}
	switch len(live) {
	case 0:
		return Nop{}
	case 1:
		return live[0]
	}
	return live
}

// FromConfig builds the feed for the configured Slack and Discord channels.
// Channels without credentials are skipped.
func FromConfig(slackToken, slackChannel, discordToken, discordChannel string) (Feed, error) {
	var feeds []Feed
	if s := NewSlack(slackToken, slackChannel); s != nil {
		feeds = append(feeds, s)
	}
	d, err := NewDiscord(discordToken, discordChannel)
	if err != nil {
		return nil, err
	}
	if d != nil {
		feeds = append(feeds, d)
	}
	return New(feeds...), nil
}

// backoff retries fn while isRateLimit reports a wait, honoring ctx.
func backoff(ctx context.Context, fn func() error, isRateLimit func(error) (time.Duration, bool)) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		wait, limited := isRateLimit(err)
		if !limited || attempt == maxRetries {
			return err
		}
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

func logFailure(name string, e Entry, err error) {
	log.Printf("opsfeed: %s: post %q: %v", name, e.Title, err)
}
