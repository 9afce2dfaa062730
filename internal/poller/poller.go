// Package poller keeps a running campaign's progress approximately fresh.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// DefaultInterval is the period between status fetches
const DefaultInterval = 3 * time.Second

// StatusAPI fetches campaign progress
type StatusAPI interface {
	Status(ctx context.Context, campaignID string) (*sparkai.StatusReport, error)
}

// CreditRefresher re-reads the user's credit balance
type CreditRefresher interface {
	RefreshCredits(ctx context.Context) error
}

// Options configures a Poller
type Options struct {
	Interval time.Duration
	// Terminal lists the statuses that end polling. Empty means completed only.
	Terminal []sparkai.CampaignStatus
}

// Snapshot is the latest known progress of one campaign
type Snapshot struct {
	CampaignID string                `json:"campaignId"`
	Report     *sparkai.StatusReport `json:"report,omitempty"`
	Visible    bool                  `json:"visible"`
	Done       bool                  `json:"done"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// Poller fetches campaign status on a fixed period
type Poller struct {
	api      StatusAPI
	credits  CreditRefresher
	interval time.Duration
	terminal map[sparkai.CampaignStatus]bool
	logger   zerolog.Logger
}

// New creates a poller
func New(api StatusAPI, credits CreditRefresher, opts Options, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if len(opts.Terminal) == 0 {
		opts.Terminal = []sparkai.CampaignStatus{sparkai.CampaignStatusCompleted}
	}
	terminal := make(map[sparkai.CampaignStatus]bool, len(opts.Terminal))
	for _, s := range opts.Terminal {
		terminal[s] = true
	}
	return &Poller{
		api:      api,
		credits:  credits,
		interval: opts.Interval,
		terminal: terminal,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Handle controls one polling loop
type Handle struct {
	campaignID string
	cancel     context.CancelFunc
	done       chan struct{}
	closeOnce  sync.Once

	mu   sync.RWMutex
	snap Snapshot
}

// CampaignID returns the polled campaign
func (h *Handle) CampaignID() string {
	return h.campaignID
}

// Snapshot returns the latest progress
func (h *Handle) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// Done is closed once the loop has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Close hides the panel and stops polling. It waits for the loop to exit.
func (h *Handle) Close() Snapshot {
	h.closeOnce.Do(func() {
		h.cancel()
		<-h.done
		h.mu.Lock()
		h.snap.Visible = false
		h.snap.Done = true
		h.mu.Unlock()
	})
	return h.Snapshot()
}

func (h *Handle) update(report *sparkai.StatusReport, done bool) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap.Report = report
	h.snap.Done = done
	h.snap.UpdatedAt = time.Now()
	return h.snap
}

// Start fetches the status once right away, then on every interval until a
// terminal status is seen, the handle is closed or ctx is cancelled.
// onUpdate, if set, receives every fresh snapshot from the polling goroutine.
func (p *Poller) Start(ctx context.Context, campaignID string, onUpdate func(Snapshot)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		campaignID: campaignID,
		cancel:     cancel,
		done:       make(chan struct{}),
		snap:       Snapshot{CampaignID: campaignID, Visible: true},
	}
	if onUpdate == nil {
		onUpdate = func(Snapshot) {}
	}

	p.logger.Info().Str("campaign_id", campaignID).Dur("interval", p.interval).Msg("Status polling started")
	go p.run(ctx, h, onUpdate)
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle, onUpdate func(Snapshot)) {
	defer close(h.done)

	var prev *sparkai.StatusReport
	if p.tick(ctx, h, &prev, onUpdate) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Str("campaign_id", h.campaignID).Msg("Status polling cancelled")
			return
		case <-ticker.C:
			if p.tick(ctx, h, &prev, onUpdate) {
				return
			}
		}
	}
}

// tick performs one fetch and reports whether polling should end
func (p *Poller) tick(ctx context.Context, h *Handle, prev **sparkai.StatusReport, onUpdate func(Snapshot)) bool {
	report, err := p.api.Status(ctx, h.campaignID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.logger.Warn().Err(err).Str("campaign_id", h.campaignID).Msg("Status poll failed")
		return false
	}
	if report == nil {
		return false
	}

	if last := *prev; last != nil &&
		(last.CompletedCalls != report.CompletedCalls || last.SuccessfulCalls != report.SuccessfulCalls) {
		if err := p.credits.RefreshCredits(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("Credit refresh failed")
		}
	}
	*prev = report

	if ctx.Err() != nil {
		return true
	}

	terminal := p.terminal[report.Status]
	onUpdate(h.update(report, terminal))

	if terminal {
		p.logger.Info().
			Str("campaign_id", h.campaignID).
			Str("status", string(report.Status)).
			Int("completed_calls", report.CompletedCalls).
			Msg("Status polling finished")
	}
	return terminal
}
