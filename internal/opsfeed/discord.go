package opsfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts entries as embeds. It only uses the REST API, so no gateway
// connection is opened.
type Discord struct {
	sess      discordSession
	channelID string
}

// NewDiscord returns a Discord feed for a bot token and channel, or nil when
// either is empty.
func NewDiscord(botToken, channelID string) (*Discord, error) {
	if botToken == "" || channelID == "" {
		return nil, nil
	}
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("opsfeed: discord session: %w", err)
	}
	return &Discord{sess: dg, channelID: channelID}, nil
}

// Post implements Feed.
func (d *Discord) Post(ctx context.Context, e Entry) {
	embed := toEmbed(e)
	err := backoff(ctx, func() error {
		_, err := d.sess.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
		return err
	}, discordRateLimit)
	if err != nil {
		logFailure("discord", e, fmt.Errorf("send embed: %w", err))
	}
}

func discordRateLimit(err error) (time.Duration, bool) {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusTooManyRequests {
		return 0, true
	}
	return 0, false
}

// toEmbed converts an Entry to a Discord embed.
func toEmbed(e Entry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Body,
	}
	if e.Color != "" {
		embed.Color = embedColor(e.Color)
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// embedColor reads a "#rrggbb" color. Malformed input yields 0, which
// Discord renders as the default embed color.
func embedColor(hex string) int {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 24)
	if err != nil {
		return 0
	}
	return int(v)
}
