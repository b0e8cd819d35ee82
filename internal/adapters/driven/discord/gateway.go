package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure Gateway implements the MessageStream interface.
var _ driven.MessageStream = (*Gateway)(nil)

// streamBuffer bounds how many live messages may wait for the collector.
const streamBuffer = 64

// Gateway streams newly created messages over a websocket session.
type Gateway struct {
	tokenType domain.TokenType
}

// NewGateway creates a live message stream.
func NewGateway(tokenType domain.TokenType) *Gateway {
	return &Gateway{tokenType: tokenType}
}

// Stream opens a gateway session and forwards every MessageCreate event.
// The session is closed and the channel closed when ctx is done.
func (g *Gateway) Stream(ctx context.Context, token string) (<-chan domain.LiveMessage, error) {
	s, err := discordgo.New(AuthorizationValue(g.tokenType, token))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	out := make(chan domain.LiveMessage, streamBuffer)
	var (
		mu     sync.RWMutex
		closed bool
	)

	remove := s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil {
			return
		}
		msg := liveFromState(s.State, m.Message)

		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
		}
	})

	if err := s.Open(); err != nil {
		remove()
		return nil, fmt.Errorf("open gateway: %w", err)
	}
	logger.Debug("gateway session open")

	go func() {
		<-ctx.Done()
		remove()
		if err := s.Close(); err != nil {
			logger.Debug("close gateway: %v", err)
		}
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out, nil
}

// liveFromState resolves the channel and guild of a message from the
// session cache.
func liveFromState(state *discordgo.State, m *discordgo.Message) domain.LiveMessage {
	var (
		ch *discordgo.Channel
		g  *discordgo.Guild
	)
	if state != nil {
		ch, _ = state.Channel(m.ChannelID)
		if m.GuildID != "" {
			g, _ = state.Guild(m.GuildID)
		}
	}
	return LiveMessage(m, ch, g)
}

// LiveMessage places a message by origin. ch and g may be nil when the
// session cache does not know them.
func LiveMessage(m *discordgo.Message, ch *discordgo.Channel, g *discordgo.Guild) domain.LiveMessage {
	lm := domain.LiveMessage{
		Item:        itemFromMessage(m),
		Origin:      domain.OriginUnknown,
		ContainerID: m.ChannelID,
	}
	if ch != nil {
		lm.ContainerName = ch.Name
	}

	switch {
	case m.GuildID != "" && g != nil:
		lm.Origin = domain.OriginGuild
		lm.ScopeName = g.Name
	case ch != nil && ch.Type == discordgo.ChannelTypeDM:
		lm.Origin = domain.OriginDM
	case ch != nil && ch.Type == discordgo.ChannelTypeGroupDM:
		lm.Origin = domain.OriginGroupDM
	}
	return lm
}
