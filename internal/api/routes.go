package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/bvrai/campaign-console/internal/campaign"
	"github.com/bvrai/campaign-console/internal/config"
	"github.com/bvrai/campaign-console/internal/poller"
	"github.com/bvrai/campaign-console/internal/session"
	"github.com/bvrai/campaign-console/internal/store"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// maxUploadSize bounds multipart bodies held in memory
const maxUploadSize = 32 << 20

// VoiceAPI lists and clones agent voices
type VoiceAPI interface {
	List(ctx context.Context) ([]sparkai.Voice, error)
	Clone(ctx context.Context, params sparkai.VoiceCloneParams) (*sparkai.Voice, error)
}

// Router handles HTTP routing for the dashboard
type Router struct {
	cfg       *config.Config
	sessions  *session.Manager
	campaigns *campaign.Controller
	polls     *poller.Manager
	voices    VoiceAPI
	store     store.Store
	stream    *StatusStream
	logger    zerolog.Logger
	startTime time.Time

	// ctx outlives requests; polling loops started by a request hang off it
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRouter creates a new router and wires polling to campaign starts
func NewRouter(
	cfg *config.Config,
	sessions *session.Manager,
	campaigns *campaign.Controller,
	polls *poller.Manager,
	voices VoiceAPI,
	st store.Store,
	logger zerolog.Logger,
) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &Router{
		cfg:       cfg,
		sessions:  sessions,
		campaigns: campaigns,
		polls:     polls,
		voices:    voices,
		store:     st,
		stream:    NewStatusStream(cfg, polls, logger),
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	campaigns.OnTransition(func(campaignID string, a campaign.Action) {
		if a == campaign.ActionStart {
			polls.Watch(rt.ctx, campaignID)
		}
	})
	polls.OnSnapshot(func(s poller.Snapshot) {
		campaigns.ApplyStatusReport(s.CampaignID, s.Report)
	})
	// A 401 can surface from inside a polling loop, which cannot wait on
	// its own exit, so the teardown runs on its own goroutine.
	sessions.OnChange(func(s session.State) {
		if s.Status == session.StatusUnauthenticated {
			go rt.dropSessionViews()
		}
	})
	return rt
}

// dropSessionViews closes the open campaign and every status panel
func (rt *Router) dropSessionViews() {
	// a login may have landed before this goroutine ran
	if rt.sessions.Snapshot().Authenticated() {
		return
	}
	rt.campaigns.Close()
	if n := rt.polls.CloseAll(); n > 0 {
		rt.logger.Info().Int("panels", n).Msg("Session ended, status polling stopped")
	}
}

// Handler returns the HTTP handler
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get(rt.cfg.HealthCheckPath, rt.handleHealth)
	r.Get("/ready", rt.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", rt.handleGetSession)
			r.Post("/login", rt.handleLogin)
			r.Post("/logout", rt.handleLogout)
			r.With(rt.requireSession).Post("/refresh", rt.handleRefreshSession)
		})

		r.Route("/api/preferences", func(r chi.Router) {
			r.Get("/theme", rt.handleGetTheme)
			r.Put("/theme", rt.handlePutTheme)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.requireSession)

			r.Route("/api/campaigns", func(r chi.Router) {
				r.Get("/", rt.handleListCampaigns)
				r.Post("/", rt.handleCreateCampaign)
				r.Get("/{campaignID}", rt.handleLoadCampaign)
			})

			r.Route("/api/campaign", func(r chi.Router) {
				r.Get("/", rt.handleCurrentCampaign)
				r.Delete("/", rt.handleCloseCampaign)
				r.Post("/draft", rt.handleNewDraft)
				r.Put("/agent", rt.handleUpdateAgent)

				r.Post("/knowledge-base", rt.handleUploadKnowledgeBase)
				r.Delete("/knowledge-base/{fileID}", rt.handleDeleteKnowledgeBase)

				r.Post("/leads", rt.handleUploadLeads)
				r.Put("/leads", rt.handleSaveLeads)
				r.Post("/leads/country-code", rt.handleApplyCountryCode)
				r.Delete("/leads/preview", rt.handleClosePreview)
				r.Put("/leads/{index}", rt.handleEditLead)
				r.Delete("/leads/{index}", rt.handleDeleteLead)

				r.Post("/test-call", rt.handleTestCall)

				r.Get("/status", rt.handleGetStatus)
				r.Post("/status", rt.handleWatchStatus)
				r.Delete("/status", rt.handleCloseStatus)

				r.Post("/{action}", rt.handleTransition)
			})

			r.Route("/api/voices", func(r chi.Router) {
				r.Get("/", rt.handleListVoices)
				r.Post("/clone", rt.handleCloneVoice)
			})

			r.Get("/api/credits", rt.handleCredits)
		})
	})

	// Status stream WebSocket
	r.With(rt.requireSession).Get("/ws/status", rt.stream.HandleStream)

	return r
}

// Shutdown stops polling loops started through the API
func (rt *Router) Shutdown(ctx context.Context) error {
	rt.cancel()
	return rt.polls.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (rt *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			rt.logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// requireSession rejects requests without an authenticated session
func (rt *Router) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rt.sessions.Snapshot().Authenticated() {
			rt.respondUnauthorized(w, "Login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(rt.startTime).String(),
		Timestamp: time.Now(),
		Version:   Version,
	}
	rt.respondJSON(w, http.StatusOK, resp)
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	// The first status check must settle before views can decide what to render
	if rt.sessions.Snapshot().Status == session.StatusUnknown {
		rt.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "session not resolved",
		})
		return
	}

	rt.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// Kinds the dashboard reacts to besides the API client's error kinds
const (
	kindConfirmationRequired = "confirmation_required"
	kindSuperseded           = "superseded"
)

// respondJSON writes JSON response
func (rt *Router) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes error response
func (rt *Router) respondError(w http.ResponseWriter, status int, message string) {
	rt.respondJSON(w, status, ErrorResponse{Error: message})
}

func (rt *Router) respondUnauthorized(w http.ResponseWriter, message string) {
	rt.respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    message,
		Kind:     string(sparkai.KindUnauthorized),
		Redirect: "/login",
	})
}

// respondErr maps err to a status code and an error kind. A view switches on
// kind: insufficient_credits opens the upgrade prompt instead of a toast.
func (rt *Router) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotConfirmed):
		rt.respondJSON(w, http.StatusPreconditionRequired, ErrorResponse{Error: err.Error(), Kind: kindConfirmationRequired})
		return
	case errors.Is(err, campaign.ErrSuperseded):
		rt.respondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: kindSuperseded})
		return
	}

	kind := sparkai.KindOf(err)
	resp := ErrorResponse{Error: sparkai.Message(err), Kind: string(kind)}

	status := http.StatusInternalServerError
	switch kind {
	case sparkai.KindValidation:
		status = http.StatusBadRequest
	case sparkai.KindUnauthorized:
		status = http.StatusUnauthorized
		resp.Redirect = "/login"
	case sparkai.KindInsufficientCredits:
		status = http.StatusPaymentRequired
	case sparkai.KindNotFound:
		status = http.StatusNotFound
	case sparkai.KindNetwork, sparkai.KindBackend:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		rt.logger.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
	}
	rt.respondJSON(w, status, resp)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Kind:  string(sparkai.KindValidation),
		})
		return false
	}
	return true
}
