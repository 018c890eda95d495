package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/simaogato/coinfolio-bot/internal/logging"
)

const (
	DefaultWorkers = 8
	pollTimeout    = 30
	shardBuffer    = 16

	// DefaultDrainTimeout bounds how long buffered updates are still handled after shutdown
	DefaultDrainTimeout = 10 * time.Second
)

// Handler processes one update
type Handler interface {
	Handle(ctx context.Context, update tgbotapi.Update)
}

// UpdateSource delivers updates; *tgbotapi.BotAPI satisfies it
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller long-polls Telegram and fans updates out to a fixed set of workers.
// Updates of one chat always go to the same worker, so they are handled in order.
type Poller struct {
	source   UpdateSource
	handler  Handler
	sessions *SessionStore
	workers  int
	drain    time.Duration
	logger   *logging.Logger
}

// NewBotAPI connects to Telegram with the bot token
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

// NewPoller creates a new Poller; workers <= 0 uses DefaultWorkers
func NewPoller(source UpdateSource, handler Handler, sessions *SessionStore, workers int, logger *logging.Logger) *Poller {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &Poller{
		source:   source,
		handler:  handler,
		sessions: sessions,
		workers:  workers,
		drain:    DefaultDrainTimeout,
		logger:   logger.WithComponent("poller"),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
// Updates already buffered when ctx ends are still handled, under a context
// that outlives ctx by at most the drain timeout.
func (p *Poller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := p.source.GetUpdatesChan(u)

	work, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()

	shards := make([]chan tgbotapi.Update, p.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, shardBuffer)
		wg.Add(1)
		go func(in <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range in {
				p.handle(work, update)
			}
		}(shards[i])
	}

	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	p.logger.Info().Int("workers", p.workers).Msg("Polling for updates")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-prune.C:
			if n := p.sessions.Prune(); n > 0 {
				p.logger.Debug().Int("expired", n).Msg("Sessions pruned")
			}
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			shard := shards[shardFor(update, p.workers)]
			select {
			case shard <- update:
			case <-ctx.Done():
				break loop
			}
		}
	}

	p.source.StopReceivingUpdates()
	for _, shard := range shards {
		close(shard)
	}
	deadline := time.AfterFunc(p.drain, stopWork)
	wg.Wait()
	deadline.Stop()
	p.logger.Info().Msg("Polling stopped")
}

// handle runs the handler and keeps a panic from killing the worker
func (p *Poller) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Int("update", update.UpdateID).Msg("Update handler panicked")
		}
	}()
	p.handler.Handle(ctx, update)
}

func shardFor(update tgbotapi.Update, workers int) int {
	chat := update.FromChat()
	if chat == nil {
		return 0
	}
	id := chat.ID
	if id < 0 {
		id = -id
	}
	return int(id % int64(workers))
}
