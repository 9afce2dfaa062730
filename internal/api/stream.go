package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bvrai/campaign-console/internal/config"
	"github.com/bvrai/campaign-console/internal/poller"
)

// StatusStream pushes status panel snapshots to dashboard WebSocket clients
type StatusStream struct {
	origins      []string
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration

	polls    *poller.Manager
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*StreamConnection
}

// StreamConnection represents one connected dashboard
type StreamConnection struct {
	ID         string
	CampaignID string
	Conn       *websocket.Conn
	StartTime  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

// StreamMessage is the envelope of every outbound frame
type StreamMessage struct {
	Event    string           `json:"event"`
	Snapshot *poller.Snapshot `json:"snapshot,omitempty"`
}

// NewStatusStream creates a status stream handler
func NewStatusStream(cfg *config.Config, polls *poller.Manager, logger zerolog.Logger) *StatusStream {
	s := &StatusStream{
		origins:      cfg.AllowedOrigins,
		pingInterval: orDefault(cfg.WSPingInterval, 30*time.Second),
		pongWait:     orDefault(cfg.WSPongWait, 60*time.Second),
		writeWait:    orDefault(cfg.WSWriteWait, 10*time.Second),
		polls:        polls,
		logger:       logger.With().Str("component", "status_stream").Logger(),
		connections:  make(map[string]*StreamConnection),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// checkOrigin accepts same-origin tools and the configured dashboard origins
func (s *StatusStream) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleStream upgrades the request and streams snapshots until the client
// goes away. ?campaignId= limits the stream to one campaign.
func (s *StatusStream) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade WebSocket")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := &StreamConnection{
		ID:         uuid.New().String(),
		CampaignID: r.URL.Query().Get("campaignId"),
		Conn:       conn,
		StartTime:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	sc.logger = s.logger.With().Str("connection_id", sc.ID).Str("campaign_id", sc.CampaignID).Logger()

	s.mu.Lock()
	s.connections[sc.ID] = sc
	s.mu.Unlock()

	sc.logger.Info().Msg("Status stream WebSocket connected")

	go s.handleConnection(sc)
}

// ActiveConnections returns the number of connected dashboards
func (s *StatusStream) ActiveConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *StatusStream) handleConnection(sc *StreamConnection) {
	defer func() {
		sc.Conn.Close()
		sc.cancel()

		s.mu.Lock()
		delete(s.connections, sc.ID)
		s.mu.Unlock()

		sc.logger.Info().
			Dur("duration", time.Since(sc.StartTime)).
			Msg("Status stream WebSocket closed")
	}()

	go s.writeLoop(sc)

	s.readLoop(sc)
}

// readLoop only watches for pongs and the close frame
func (s *StatusStream) readLoop(sc *StreamConnection) {
	sc.Conn.SetReadDeadline(time.Now().Add(s.pongWait))
	sc.Conn.SetPongHandler(func(string) error {
		return sc.Conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		if _, _, err := sc.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// writeLoop is the connection's only writer
func (s *StatusStream) writeLoop(sc *StreamConnection) {
	updates, unsubscribe := s.polls.Subscribe(16)
	defer unsubscribe()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	if sc.CampaignID != "" {
		if snap, ok := s.polls.Get(sc.CampaignID); ok {
			if err := s.send(sc, StreamMessage{Event: "snapshot", Snapshot: &snap}); err != nil {
				sc.Conn.Close()
				return
			}
		}
	}

	for {
		select {
		case <-sc.ctx.Done():
			return

		case snap, ok := <-updates:
			if !ok {
				return
			}
			if sc.CampaignID != "" && snap.CampaignID != sc.CampaignID {
				continue
			}
			if err := s.send(sc, StreamMessage{Event: "snapshot", Snapshot: &snap}); err != nil {
				sc.logger.Debug().Err(err).Msg("Failed to send snapshot")
				sc.Conn.Close()
				return
			}

		case <-ping.C:
			deadline := time.Now().Add(s.writeWait)
			if err := sc.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				sc.Conn.Close()
				return
			}
		}
	}
}

func (s *StatusStream) send(sc *StreamConnection, msg StreamMessage) error {
	sc.Conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return sc.Conn.WriteJSON(msg)
}
