package bot

import (
	"context"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/gagbot/internal/observability"
)

// Poller pulls updates from the Telegram long-poll API and fans them out to
// a fixed pool of workers. Updates are independent, so workers process them
// concurrently with no ordering guarantee between chats or users.
type Poller struct {
	processor *UpdateProcessor
	workers   int

	// source opens the update feed; swapped out in tests.
	source func(ctx context.Context) api.UpdatesChannel

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPoller(bot *api.BotAPI, processor *UpdateProcessor, workers int) *Poller {
	if workers < 1 {
		workers = 1
	}
	return &Poller{
		processor: processor,
		workers:   workers,
		source: func(ctx context.Context) api.UpdatesChannel {
			updateConfig := api.NewUpdate(0)
			updateConfig.Timeout = 60
			return GetUpdatesChans(ctx, bot, updateConfig)
		},
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	updates := p.source(runCtx)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.work(gctx, updates)
		})
	}

	go func() {
		defer close(p.done)
		if err := g.Wait(); err != nil && gctx.Err() == nil {
			log.WithError(err).Error("update poller stopped")
		}
	}()

	p.started = true
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Poller) work(ctx context.Context, updates api.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			finish := observability.StartUpdateProcessing()
			if err := p.processor.Process(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
				finish("error")
				continue
			}
			finish("ok")
		}
	}
}
