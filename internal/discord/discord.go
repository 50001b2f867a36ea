// Package discord adapts the Discord REST API to the relay's sender and icon
// catalog contracts.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/eldtechnologies/gamelog-relay/internal/dispatch"
	"github.com/eldtechnologies/gamelog-relay/internal/format"
)

// api is the subset of *discordgo.Session the client uses.
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildEmojis(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Emoji, error)
}

// Client sends relay messages and reads the guild's custom emoji.
type Client struct {
	api     api
	guildID string
}

// New creates a Client authenticated as a bot.
func New(token, guildID string) (*Client, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Client{api: session, guildID: guildID}, nil
}

// Send posts a message, with its attachment if any.
func (c *Client) Send(ctx context.Context, msg dispatch.Message) error {
	data := &discordgo.MessageSend{
		Content: msg.Text,
		// Log lines never ping anyone.
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	if msg.Attachment != nil {
		data.Files = []*discordgo.File{{
			Name:        msg.Attachment.Name,
			ContentType: http.DetectContentType(msg.Attachment.Data),
			Reader:      bytes.NewReader(msg.Attachment.Data),
		}}
	}

	if _, err := c.api.ChannelMessageSendComplex(msg.ChannelID, data, discordgo.WithContext(ctx)); err != nil {
		if isUnresolvable(err) {
			return fmt.Errorf("channel %s: %w: %v", msg.ChannelID, dispatch.ErrUnknownChannel, err)
		}
		return err
	}
	return nil
}

// Icons returns the guild's custom emoji as an icon catalog.
func (c *Client) Icons(ctx context.Context) ([]format.Icon, error) {
	if c.guildID == "" {
		return nil, nil
	}
	emojis, err := c.api.GuildEmojis(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list emoji for guild %s: %w", c.guildID, err)
	}

	icons := make([]format.Icon, 0, len(emojis))
	for _, e := range emojis {
		if e == nil || e.Name == "" {
			continue
		}
		icons = append(icons, format.Icon{Name: e.Name, Glyph: e.MessageFormat()})
	}
	return icons, nil
}

// isUnresolvable reports whether a send failed because the channel is gone or
// not visible to the bot.
func isUnresolvable(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
