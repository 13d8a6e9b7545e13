package api

import (
	"sync"
	"time"

	"github.com/mentislab/mentis/internal/models"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// no-configuration default; production deployments point MENTIS_DB_PATH at a
// SQLite file instead.
type MemoryStore struct {
	mu             sync.RWMutex
	participants   map[string]*models.Participant
	participantSeq []string
	socio          []*models.Sociodemographic
	autResponses   []*models.AUTResponse
	fiqResponses   []*models.FIQResponse
	dilResponses   []*models.DilemmaResponse
	screens        []*models.ScreenTimestamp

	autStimuli map[string]*models.AUTStimulus
	fiqStimuli map[string]*models.FIQStimulus
	dilemmas   map[string]*models.EthicalDilemma
	consents   map[string]*models.ConsentConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: map[string]*models.Participant{},
		autStimuli:   map[string]*models.AUTStimulus{},
		fiqStimuli:   map[string]*models.FIQStimulus{},
		dilemmas:     map[string]*models.EthicalDilemma{},
		consents:     map[string]*models.ConsentConfig{},
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveParticipant(p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if _, seen := s.participants[p.ID]; !seen {
		s.participantSeq = append(s.participantSeq, p.ID)
	}
	s.participants[p.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateParticipantStatus(id string, st models.Status, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil // best-effort mirror; the row may not have landed yet
	}
	p.Status = st
	p.CompletedAt = completedAt
	return nil
}

func (s *MemoryStore) GetParticipant(id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListParticipants() ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Participant, 0, len(s.participantSeq))
	for _, id := range s.participantSeq {
		cp := *s.participants[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) SaveSociodemographic(d *models.Sociodemographic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.socio = append(s.socio, &cp)
	return nil
}

func (s *MemoryStore) ListSociodemographics() ([]*models.Sociodemographic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.socio), nil
}

func (s *MemoryStore) SaveAUTResponse(r *models.AUTResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.autResponses = append(s.autResponses, &cp)
	return nil
}

func (s *MemoryStore) ListAUTResponses() ([]*models.AUTResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.autResponses), nil
}

func (s *MemoryStore) SaveFIQResponse(r *models.FIQResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.fiqResponses = append(s.fiqResponses, &cp)
	return nil
}

func (s *MemoryStore) ListFIQResponses() ([]*models.FIQResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.fiqResponses), nil
}

func (s *MemoryStore) SaveDilemmaResponse(r *models.DilemmaResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.dilResponses = append(s.dilResponses, &cp)
	return nil
}

func (s *MemoryStore) ListDilemmaResponses() ([]*models.DilemmaResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.dilResponses), nil
}

func (s *MemoryStore) SaveScreenTimestamp(ts *models.ScreenTimestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ts
	s.screens = append(s.screens, &cp)
	return nil
}

func (s *MemoryStore) ListScreenTimestamps() ([]*models.ScreenTimestamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.screens), nil
}

func (s *MemoryStore) UpsertAUTStimulus(st *models.AUTStimulus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.autStimuli[st.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteAUTStimulus(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.autStimuli[id]
	delete(s.autStimuli, id)
	return ok, nil
}

func (s *MemoryStore) ListAUTStimuli() ([]*models.AUTStimulus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.autStimuli), nil
}

func (s *MemoryStore) UpsertFIQStimulus(st *models.FIQStimulus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.fiqStimuli[st.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteFIQStimulus(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fiqStimuli[id]
	delete(s.fiqStimuli, id)
	return ok, nil
}

func (s *MemoryStore) ListFIQStimuli() ([]*models.FIQStimulus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.fiqStimuli), nil
}

func (s *MemoryStore) UpsertDilemma(d *models.EthicalDilemma) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.dilemmas[d.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteDilemma(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dilemmas[id]
	delete(s.dilemmas, id)
	return ok, nil
}

func (s *MemoryStore) ListDilemmas() ([]*models.EthicalDilemma, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.dilemmas), nil
}

func (s *MemoryStore) UpsertConsent(c *models.ConsentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.consents[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteConsent(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.consents[id]
	delete(s.consents, id)
	return ok, nil
}

func (s *MemoryStore) ListConsents() ([]*models.ConsentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.consents), nil
}

func copyRows[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, r := range in {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

func copyMap[T any](in map[string]*T) []*T {
	out := make([]*T, 0, len(in))
	for _, r := range in {
		cp := *r
		out = append(out, &cp)
	}
	return out
}
