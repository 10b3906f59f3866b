// Package notify delivers trade-action messages.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/metrics"
)

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, message string) error
	Close() error
}

// NoOp drops every message. It is used when notifications are disabled.
type NoOp struct{}

func (NoOp) Send(context.Context, string) error { return nil }
func (NoOp) Close() error { return nil }

// discordSession is the part of *discordgo.Session the notifier uses.
type discordSession interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// maxMessageLen is Discord's limit on one message body.
const maxMessageLen = 2000

// Discord posts messages to one channel as a bot.
type Discord struct {
	session   discordSession
	channelID string
	logger    *zap.Logger
}

func NewDiscord(token, channelID string, logger *zap.Logger) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("discord bot token and channel ID must be configured")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discord{session: s, channelID: channelID, logger: logger}, nil
}

// Send posts message, split on line boundaries when it exceeds the
// message limit.
func (d *Discord) Send(ctx context.Context, message string) error {
	for _, part := range split(message, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.session.ChannelMessageSend(d.channelID, part, discordgo.WithContext(ctx)); err != nil {
			metrics.Notifications.WithLabelValues("error").Inc()
			d.logger.Error("discord send failed", zap.String("channel", d.channelID), zap.Error(err))
			return fmt.Errorf("discord send: %w", err)
		}
	}
	metrics.Notifications.WithLabelValues("ok").Inc()
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

func split(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if s[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
