package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure Client implements the source and directory ports.
var (
	_ driven.MessageSource = (*Client)(nil)
	_ driven.Directory     = (*Client)(nil)
)

// MaxPageSize is the largest page the listing endpoint returns.
const MaxPageSize = 100

func requestOptions(ctx context.Context) []discordgo.RequestOption {
	return []discordgo.RequestOption{
		discordgo.WithContext(ctx),
		discordgo.WithRetryOnRatelimit(false),
	}
}

// ListMessages returns up to limit messages older than before, newest first.
func (c *Client) ListMessages(ctx context.Context, token, channelID, before string, limit int) ([]domain.Item, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	msgs, err := c.session(token).ChannelMessages(channelID, limit, before, "", "", requestOptions(ctx)...)
	if err != nil {
		return nil, translate(err)
	}

	items := make([]domain.Item, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		items = append(items, itemFromMessage(m))
	}
	return items, nil
}

// itemFromMessage converts an API message into a domain item.
func itemFromMessage(m *discordgo.Message) domain.Item {
	item := domain.Item{
		ID:        m.ID,
		Body:      m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		item.AuthorID = m.Author.ID
		item.AuthorName = m.Author.Username
	}
	for _, a := range m.Attachments {
		if a != nil && a.URL != "" {
			item.AttachmentURLs = append(item.AttachmentURLs, a.URL)
		}
	}
	return item
}

// CurrentAccount returns the user that owns the token.
func (c *Client) CurrentAccount(ctx context.Context, token string) (domain.Account, error) {
	u, err := c.session(token).User("@me", requestOptions(ctx)...)
	if err != nil {
		return domain.Account{}, translate(err)
	}
	return domain.Account{ID: u.ID, Name: u.Username}, nil
}

// guildPageSize is the maximum page of the guild listing endpoint.
const guildPageSize = 200

// Scopes returns every guild the account belongs to, in listing order.
func (c *Client) Scopes(ctx context.Context, token string) ([]domain.Scope, error) {
	var scopes []domain.Scope
	after := ""
	for {
		guilds, err := c.session(token).UserGuilds(guildPageSize, "", after, false, requestOptions(ctx)...)
		if err != nil {
			return nil, fmt.Errorf("list guilds: %w", translate(err))
		}
		for _, g := range guilds {
			if g != nil {
				scopes = append(scopes, domain.Scope{ID: g.ID, Name: g.Name})
			}
		}
		if len(guilds) < guildPageSize {
			return scopes, nil
		}
		after = guilds[len(guilds)-1].ID
	}
}

// Containers returns the text and announcement channels of a guild.
func (c *Client) Containers(ctx context.Context, token, guildID string) ([]domain.Container, error) {
	channels, err := c.session(token).GuildChannels(guildID, requestOptions(ctx)...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", translate(err))
	}

	containers := make([]domain.Container, 0, len(channels))
	for _, ch := range channels {
		if ch == nil || !IsTextChannel(ch.Type) {
			continue
		}
		containers = append(containers, domain.Container{
			ID:       ch.ID,
			Name:     ch.Name,
			Position: ch.Position,
			ScopeID:  guildID,
		})
	}
	return containers, nil
}

// IsTextChannel reports whether a channel type holds a readable message
// history: text (0) and announcement (5) channels.
func IsTextChannel(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildText || t == discordgo.ChannelTypeGuildNews
}
