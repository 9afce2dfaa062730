package poller

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Manager keeps one polling loop per campaign and fans snapshots out to
// subscribers
type Manager struct {
	mu          sync.RWMutex
	handles     map[string]*Handle
	subscribers map[int]chan Snapshot
	nextSub     int

	poller *Poller
	logger zerolog.Logger

	// Callbacks
	onSnapshot []func(Snapshot)
}

// NewManager creates a polling manager
func NewManager(p *Poller, logger zerolog.Logger) *Manager {
	return &Manager{
		handles:     make(map[string]*Handle),
		subscribers: make(map[int]chan Snapshot),
		poller:      p,
		logger:      logger.With().Str("component", "poll_manager").Logger(),
	}
}

// Watch starts polling a campaign, replacing any loop already running for it.
// ctx bounds the loop's lifetime and should outlive the caller's request.
func (m *Manager) Watch(ctx context.Context, campaignID string) *Handle {
	h := m.poller.Start(ctx, campaignID, m.publish)

	// The swap is atomic so concurrent watchers never orphan a loop
	m.mu.Lock()
	old := m.handles[campaignID]
	m.handles[campaignID] = h
	active := len(m.handles)
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.logger.Debug().Str("campaign_id", campaignID).Int("panels", active).Msg("Watching campaign")
	return h
}

// Get returns the latest snapshot for a campaign
func (m *Manager) Get(campaignID string) (Snapshot, bool) {
	m.mu.RLock()
	h, ok := m.handles[campaignID]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return h.Snapshot(), true
}

// Close stops polling a campaign and hides its panel
func (m *Manager) Close(campaignID string) bool {
	m.mu.Lock()
	h, ok := m.handles[campaignID]
	delete(m.handles, campaignID)
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.publish(h.Close())
	return true
}

// Subscribe returns a channel receiving every snapshot and a cancel func.
// Slow subscribers miss snapshots rather than stall polling.
func (m *Manager) Subscribe(buffer int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// OnSnapshot registers a callback for every snapshot
func (m *Manager) OnSnapshot(fn func(Snapshot)) {
	m.mu.Lock()
	m.onSnapshot = append(m.onSnapshot, fn)
	m.mu.Unlock()
}

func (m *Manager) publish(s Snapshot) {
	m.mu.RLock()
	callbacks := append([]func(Snapshot){}, m.onSnapshot...)
	for _, ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			m.logger.Debug().Str("campaign_id", s.CampaignID).Msg("Dropped snapshot for slow subscriber")
		}
	}
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(s)
	}
}

// Count returns the number of open status panels
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

// CloseAll stops every polling loop and hides every panel. It returns the
// number of panels closed.
func (m *Manager) CloseAll() int {
	handles := m.detach()
	for _, h := range handles {
		m.publish(h.Close())
	}
	if len(handles) > 0 {
		m.logger.Debug().Int("panels", len(handles)).Msg("Closed all status panels")
	}
	return len(handles)
}

func (m *Manager) detach() []*Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.handles = make(map[string]*Handle)
	return handles
}

// Shutdown stops every polling loop
func (m *Manager) Shutdown(ctx context.Context) error {
	handles := m.detach()

	m.logger.Info().Int("panels", len(handles)).Msg("Shutting down status polling")

	done := make(chan struct{})
	go func() {
		for _, h := range handles {
			h.Close()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
