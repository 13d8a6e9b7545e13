package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mentislab/mentis/internal/middleware"
	"github.com/mentislab/mentis/internal/services"
	"github.com/mentislab/mentis/internal/session"
)

// Options wires the router to its collaborators.
type Options struct {
	Store  Store
	Logger *zap.Logger

	JWTSecret         []byte
	AdminPassword     string
	AdminPasswordHash string
	TokenTTL          time.Duration

	// SessionTTL bounds each participant run; GuardInterval is the
	// expiration poll period.
	SessionTTL    time.Duration
	GuardInterval time.Duration

	UploadDir string
}

// Router owns the HTTP surface: the participant-facing session endpoints and
// the single admin action-dispatch endpoint.
type Router struct {
	store  Store
	logger *zap.Logger

	auth    *services.AuthService
	stimuli *services.StimulusService
	stats   *services.StatsService
	export  *services.ExportService
	uploads *services.UploadService

	outbox        *session.Outbox
	sessions      *sessionRegistry
	sessionTTL    time.Duration
	guardInterval time.Duration
}

func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	secret := opts.JWTSecret
	signer := func(ttl time.Duration) (string, error) {
		return middleware.SignAdminToken(secret, ttl)
	}
	verifier := func(tok string) error {
		return middleware.ParseAdminToken(secret, tok)
	}
	rt := &Router{
		store:         store,
		logger:        logger,
		auth:          services.NewAuthService(opts.AdminPassword, opts.AdminPasswordHash, signer, verifier, opts.TokenTTL),
		stimuli:       services.NewStimulusService(store),
		stats:         services.NewStatsService(store),
		export:        services.NewExportService(store),
		uploads:       services.NewUploadService(opts.UploadDir),
		outbox:        session.NewOutbox(logger.Named("outbox")),
		sessions:      newSessionRegistry(),
		sessionTTL:    opts.SessionTTL,
		guardInterval: opts.GuardInterval,
	}
	return rt
}

// Register mounts every route.
func (rt *Router) Register(r *mux.Router) {
	r.HandleFunc("/api/bundle", rt.handleBundle).Methods(http.MethodGet)
	r.HandleFunc("/api/participants", rt.handleCreateParticipant).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}", rt.handleGetParticipant).Methods(http.MethodGet)
	r.HandleFunc("/api/participants/{id}/status", rt.handleUpdateStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/step", rt.handleAdvanceStep).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/sociodemographic", rt.handleSociodemographic).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/responses/aut", rt.handleAUTResponse).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/responses/fiq", rt.handleFIQResponse).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/responses/dilemma", rt.handleDilemmaResponse).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/screens/start", rt.handleScreenStart).Methods(http.MethodPost)
	r.HandleFunc("/api/participants/{id}/screens/end", rt.handleScreenEnd).Methods(http.MethodPost)
	r.HandleFunc("/api/admin", rt.handleAdmin).Methods(http.MethodPost)
}

// Close stops every live guard and drains the outbox. Call on shutdown.
func (rt *Router) Close() {
	rt.sessions.stopAll()
	rt.outbox.Close()
}

// sessionRegistry maps participant ids to their live sessions. Each session
// lives exactly as long as one participant run; there is no cross-session
// sharing and no resume after the process restarts.
type sessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	sess  *session.Session
	guard *session.Guard
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{entries: map[string]*sessionEntry{}}
}

func (r *sessionRegistry) add(id string, sess *session.Session, guard *session.Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &sessionEntry{sess: sess, guard: guard}
}

func (r *sessionRegistry) get(id string) *session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.sess
	}
	return nil
}

func (r *sessionRegistry) stopAll() {
	r.mu.Lock()
	entries := make([]*sessionEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()
	for _, e := range entries {
		if e.guard != nil {
			e.guard.Stop()
		}
	}
}
