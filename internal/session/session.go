// Package session implements the experiment session state machine: one
// Session per participant run, from consent to a terminal status. It owns the
// participant identity, the step counter, the response buffers and the screen
// timing log, and mirrors every mutation to durable storage through an Outbox.
package session

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentislab/mentis/internal/models"
)

var (
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	// Replacing the participant mid-session would orphan buffered responses
	// under a stale id, so the second call is rejected outright.
	ErrAlreadyInitialized = errors.New("session: already initialized")
	// ErrNoParticipant is returned by recording operations before Initialize.
	ErrNoParticipant = errors.New("session: no participant")
	// ErrSessionClosed is returned by recording operations after the
	// participant reached a terminal status.
	ErrSessionClosed = errors.New("session: closed")
	// ErrInvalidTransition is returned for status transitions that would
	// leave a terminal status or re-enter in_progress.
	ErrInvalidTransition = errors.New("session: invalid status transition")
	// ErrUnknownStatus is returned for status values outside the lifecycle.
	ErrUnknownStatus = errors.New("session: unknown status")
	// ErrLikertOutOfRange is returned for dilemma values outside 1..5.
	ErrLikertOutOfRange = errors.New("session: likert value out of range")
)

// MobileWidthCutoff is the viewport width below which a device counts as mobile.
const MobileWidthCutoff = 768

// DeviceMeta is the coarse client metadata captured at session start.
type DeviceMeta struct {
	UserAgent    string
	ScreenWidth  int
	ScreenHeight int
}

// Sink receives the durable mirror of session mutations. Writes go through
// the Outbox and are best-effort: a failing sink never surfaces to callers.
type Sink interface {
	SaveParticipant(p *models.Participant) error
	UpdateParticipantStatus(id string, st models.Status, completedAt *time.Time) error
	SaveSociodemographic(d *models.Sociodemographic) error
	SaveAUTResponse(r *models.AUTResponse) error
	SaveFIQResponse(r *models.FIQResponse) error
	SaveDilemmaResponse(r *models.DilemmaResponse) error
	SaveScreenTimestamp(ts *models.ScreenTimestamp) error
}

// Config carries the immutable inputs of one session.
type Config struct {
	// FIQ is the active figural-interpretation stimulus set; Initialize
	// fixes a random presentation order over it for the whole session.
	FIQ []models.FIQStimulus
	// TTL is the maximum session duration measured from StartedAt.
	TTL time.Duration
	// ConsentVersion is the version tag of the consent document shown.
	ConsentVersion string

	// Now and Rand are injectable for tests; nil means wall clock and a
	// time-seeded source.
	Now  func() time.Time
	Rand *rand.Rand

	// Outbox and Sink enable the durable mirror; both nil is valid and
	// keeps the session purely in-memory.
	Outbox *Outbox
	Sink   Sink
}

// DefaultTTL bounds a session at half an hour, matching the instructions
// shown to participants ("20-30 minutes").
const DefaultTTL = 30 * time.Minute

// Session is the single source of truth for one participant run. All methods
// are safe for use from the expiration guard's goroutine.
type Session struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time
	rng *rand.Rand

	participant *models.Participant
	socio       *models.Sociodemographic
	fiqOrder    []models.FIQStimulus

	autResponses     []models.AUTResponse
	fiqResponses     []models.FIQResponse
	dilemmaResponses []models.DilemmaResponse

	screens []models.ScreenTimestamp

	guard *Guard
}

// New builds an empty session. Initialize must be called before anything is
// recorded.
func New(cfg Config) *Session {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Session{cfg: cfg, now: cfg.Now, rng: cfg.Rand}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Initialize creates the participant, classifies the device, and fixes the
// randomized FIQ presentation order for the rest of the session. A second
// call returns ErrAlreadyInitialized.
func (s *Session) Initialize(meta DeviceMeta) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant != nil {
		return nil, ErrAlreadyInitialized
	}
	device := "desktop"
	if meta.ScreenWidth > 0 && meta.ScreenWidth < MobileWidthCutoff {
		device = "mobile"
	}
	p := &models.Participant{
		ID:               uuid.NewString(),
		Status:           models.StatusInProgress,
		StartedAt:        s.now(),
		DeviceType:       device,
		UserAgent:        meta.UserAgent,
		ScreenResolution: resolution(meta),
		ConsentVersion:   s.cfg.ConsentVersion,
		CurrentStep:      1,
	}
	s.participant = p
	s.fiqOrder = shuffledFIQ(s.rng, s.cfg.FIQ)

	cp := *p
	s.persist("participant-create", func(sink Sink) error { return sink.SaveParticipant(&cp) })
	out := *p
	return &out, nil
}

func resolution(meta DeviceMeta) string {
	if meta.ScreenWidth <= 0 || meta.ScreenHeight <= 0 {
		return ""
	}
	return strconv.Itoa(meta.ScreenWidth) + "x" + strconv.Itoa(meta.ScreenHeight)
}

// AdvanceStep moves the progress counter shown to the participant. It is
// display-only and does not gate recording; screens own navigation order.
func (s *Session) AdvanceStep(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil || n < 1 {
		return
	}
	s.participant.CurrentStep = n
}

// Participant returns a copy of the current participant, or nil before
// Initialize.
func (s *Session) Participant() *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil {
		return nil
	}
	cp := *s.participant
	return &cp
}

// FIQOrder returns the randomized stimulus sequence fixed at Initialize.
func (s *Session) FIQOrder() []models.FIQStimulus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FIQStimulus(nil), s.fiqOrder...)
}

// SetSociodemographic stores the questionnaire submission.
func (s *Session) SetSociodemographic(d models.Sociodemographic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}
	d.ParticipantID = s.participant.ID
	s.socio = &d
	cp := d
	s.persist("sociodemographic", func(sink Sink) error { return sink.SaveSociodemographic(&cp) })
	return nil
}

// Sociodemographic returns the stored questionnaire data, or nil.
func (s *Session) Sociodemographic() *models.Sociodemographic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.socio == nil {
		return nil
	}
	cp := *s.socio
	return &cp
}

// RecordAUT appends an alternative-uses response in call order.
func (s *Session) RecordAUT(r models.AUTResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}
	r.ParticipantID = s.participant.ID
	s.autResponses = append(s.autResponses, r)
	cp := r
	s.persist("aut-response", func(sink Sink) error { return sink.SaveAUTResponse(&cp) })
	return nil
}

// RecordFIQ appends a figural-interpretation response in call order.
func (s *Session) RecordFIQ(r models.FIQResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}
	r.ParticipantID = s.participant.ID
	s.fiqResponses = append(s.fiqResponses, r)
	cp := r
	s.persist("fiq-response", func(sink Sink) error { return sink.SaveFIQResponse(&cp) })
	return nil
}

// RecordDilemma appends a dilemma response in call order. The Likert value
// must be within 1..5.
func (s *Session) RecordDilemma(r models.DilemmaResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}
	if r.LikertValue < 1 || r.LikertValue > 5 {
		return ErrLikertOutOfRange
	}
	r.ParticipantID = s.participant.ID
	s.dilemmaResponses = append(s.dilemmaResponses, r)
	cp := r
	s.persist("dilemma-response", func(sink Sink) error { return sink.SaveDilemmaResponse(&cp) })
	return nil
}

// AUTResponses returns the buffered AUT responses in call order.
func (s *Session) AUTResponses() []models.AUTResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AUTResponse(nil), s.autResponses...)
}

// FIQResponses returns the buffered FIQ responses in call order.
func (s *Session) FIQResponses() []models.FIQResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FIQResponse(nil), s.fiqResponses...)
}

// DilemmaResponses returns the buffered dilemma responses in call order.
func (s *Session) DilemmaResponses() []models.DilemmaResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DilemmaResponse(nil), s.dilemmaResponses...)
}

// UpdateStatus transitions the participant status. Transitions are one-way
// out of in_progress; leaving it stamps the completion time and detaches the
// expiration guard.
func (s *Session) UpdateStatus(st models.Status) error {
	s.mu.Lock()
	if s.participant == nil {
		s.mu.Unlock()
		return ErrNoParticipant
	}
	if !st.Valid() {
		s.mu.Unlock()
		return ErrUnknownStatus
	}
	if s.participant.Status.Terminal() || st == models.StatusInProgress {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.participant.Status = st
	done := s.now()
	s.participant.CompletedAt = &done
	id := s.participant.ID
	guard := s.guard
	s.persist("participant-status", func(sink Sink) error {
		return sink.UpdateParticipantStatus(id, st, &done)
	})
	s.mu.Unlock()

	if guard != nil {
		guard.signal()
	}
	return nil
}

// Expired reports whether the session has outlived its TTL while still
// in_progress.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil || s.participant.Status != models.StatusInProgress {
		return false
	}
	return s.now().Sub(s.participant.StartedAt) >= s.cfg.TTL
}

// open checks that recording is currently allowed. Callers hold s.mu.
func (s *Session) open() error {
	if s.participant == nil {
		return ErrNoParticipant
	}
	if s.participant.Status.Terminal() {
		return ErrSessionClosed
	}
	return nil
}

// persist hands a mutation mirror to the outbox. Callers hold s.mu; the op
// itself runs on the outbox worker without the lock.
func (s *Session) persist(label string, op func(Sink) error) {
	if s.cfg.Outbox == nil || s.cfg.Sink == nil {
		return
	}
	sink := s.cfg.Sink
	s.cfg.Outbox.Enqueue(label, func() error { return op(sink) })
}
