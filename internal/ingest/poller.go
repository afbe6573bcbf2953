package ingest

import (
	"context"
	"time"

	"myfeed/internal/logging"
	"myfeed/internal/models"
	"myfeed/internal/status"
)

// sourceIngester is what the poll loop needs from the coordinator.
type sourceIngester interface {
	IngestSource(ctx context.Context, source *models.Source, now time.Time) error
}

// Poller is the long-lived loop that decides which sources are due each cycle
// and sleeps between cycles. Sources are polled one at a time; only items
// within a source are processed concurrently.
type Poller struct {
	coordinator sourceIngester
	sources     SourceStore
	bus         *status.Bus
	logger      *logging.Logger

	checkInterval time.Duration
	defaultTTL    time.Duration

	// trigger has capacity 1: bursts of manual poll requests collapse into at
	// most one extra cycle per sleep window.
	trigger chan struct{}
}

func NewPoller(coordinator sourceIngester, sources SourceStore, bus *status.Bus, logger *logging.Logger, checkInterval, defaultTTL time.Duration) *Poller {
	return &Poller{
		coordinator:   coordinator,
		sources:       sources,
		bus:           bus,
		logger:        logger,
		checkInterval: checkInterval,
		defaultTTL:    defaultTTL,
		trigger:       make(chan struct{}, 1),
	}
}

// Trigger requests an immediate poll cycle. It never blocks; requests
// arriving while one is already pending are debounced away.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run executes poll cycles until the context is cancelled. No source-level or
// item-level failure ever stops the loop.
func (p *Poller) Run(ctx context.Context) {
	for {
		p.runCycle(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopping")
			return
		case <-time.After(p.checkInterval):
		case <-p.trigger:
		}
	}
}

// runCycle polls every due source sequentially. A failure to load the source
// list abandons the rest of the cycle; the loop sleeps and retries next time.
func (p *Poller) runCycle(ctx context.Context) {
	p.bus.Publish(status.Polling)
	now := time.Now().UTC()

	sources, err := p.sources.List(ctx)
	if err != nil {
		p.logger.Error("Failed to list sources", logging.WithField("error", err.Error()))
		return
	}

	for i := range sources {
		source := &sources[i]

		if !p.isDue(source, now) {
			p.logger.Trace("Skipping source, not due", logging.WithField("source", source.Name))
			continue
		}

		p.logger.Debug("Polling source", logging.WithField("source", source.Name))
		if err := p.coordinator.IngestSource(ctx, source, now); err != nil {
			p.logger.Error("Failed to poll source", logging.WithFields(map[string]interface{}{
				"source": source.Name,
				"error":  err.Error(),
			}))
		}
	}
}

// isDue reports whether enough time has passed since the source's last poll.
// A never-polled source is always due.
func (p *Poller) isDue(source *models.Source, now time.Time) bool {
	if source.LastPoll == nil {
		return true
	}

	ttl := p.defaultTTL
	if source.TTL != nil {
		ttl = time.Duration(*source.TTL) * time.Minute
	}

	return now.Sub(*source.LastPoll) >= ttl
}
