package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

const (
	// DefaultPollInterval matches the web client's refresh period.
	DefaultPollInterval = 7 * time.Second
	// DefaultMaxBackoff caps the delay after repeated failures.
	DefaultMaxBackoff = 2 * time.Minute
)

// PollerConfig configures a Poller. Zero values take the defaults.
type PollerConfig struct {
	Interval   time.Duration
	MaxBackoff time.Duration
	Limit      uint32
	// Cursor is where polling starts. Zero reads from the first message.
	Cursor uint64
}

// Poller repeatedly reads a conversation from the last cursor and hands new
// batches to a callback.
type Poller struct {
	messenger      *Messenger
	reader         string
	conversationID string
	cfg            PollerConfig
	logger         *logging.ColoredLogger

	// after is swapped in tests.
	after func(time.Duration) <-chan time.Time
}

// NewPoller creates a poller for reader's view of conversationID.
func NewPoller(m *Messenger, reader, conversationID string, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = DefaultMaxBackoff
		if cfg.MaxBackoff < cfg.Interval {
			cfg.MaxBackoff = cfg.Interval
		}
	}
	return &Poller{
		messenger:      m,
		reader:         reader,
		conversationID: conversationID,
		cfg:            cfg,
		logger:         m.logger,
		after:          time.After,
	}
}

// Run polls until ctx is done, calling onBatch for every non-empty batch.
// The first read happens immediately. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context, onBatch func(*Batch)) error {
	cursor := p.cfg.Cursor
	delay := p.cfg.Interval

	for {
		batch, err := p.messenger.Read(ctx, p.reader, p.conversationID, cursor, p.cfg.Limit)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay *= 2
			if delay > p.cfg.MaxBackoff {
				delay = p.cfg.MaxBackoff
			}
			p.logger.ComponentWarn(logging.ComponentChat, "Poll failed, backing off",
				zap.String("conversation_id", p.conversationID),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		case len(batch.Items) > 0:
			cursor = batch.NextCursor
			delay = p.cfg.Interval
			onBatch(batch)
		default:
			delay = p.cfg.Interval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(delay):
		}
	}
}
