package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentislab/mentis/internal/models"
)

// stubStimulusStore keeps everything in maps, mirroring the memory store's
// behavior closely enough for service-level tests.
type stubStimulusStore struct {
	aut      map[string]*models.AUTStimulus
	fiq      map[string]*models.FIQStimulus
	dilemmas map[string]*models.EthicalDilemma
	consents map[string]*models.ConsentConfig
}

func newStubStimulusStore() *stubStimulusStore {
	return &stubStimulusStore{
		aut:      map[string]*models.AUTStimulus{},
		fiq:      map[string]*models.FIQStimulus{},
		dilemmas: map[string]*models.EthicalDilemma{},
		consents: map[string]*models.ConsentConfig{},
	}
}

func (s *stubStimulusStore) UpsertAUTStimulus(st *models.AUTStimulus) error {
	cp := *st
	s.aut[st.ID] = &cp
	return nil
}

func (s *stubStimulusStore) DeleteAUTStimulus(id string) (bool, error) {
	_, ok := s.aut[id]
	delete(s.aut, id)
	return ok, nil
}

func (s *stubStimulusStore) ListAUTStimuli() ([]*models.AUTStimulus, error) {
	out := make([]*models.AUTStimulus, 0, len(s.aut))
	for _, st := range s.aut {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStimulusStore) UpsertFIQStimulus(st *models.FIQStimulus) error {
	cp := *st
	s.fiq[st.ID] = &cp
	return nil
}

func (s *stubStimulusStore) DeleteFIQStimulus(id string) (bool, error) {
	_, ok := s.fiq[id]
	delete(s.fiq, id)
	return ok, nil
}

func (s *stubStimulusStore) ListFIQStimuli() ([]*models.FIQStimulus, error) {
	out := make([]*models.FIQStimulus, 0, len(s.fiq))
	for _, st := range s.fiq {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStimulusStore) UpsertDilemma(d *models.EthicalDilemma) error {
	cp := *d
	s.dilemmas[d.ID] = &cp
	return nil
}

func (s *stubStimulusStore) DeleteDilemma(id string) (bool, error) {
	_, ok := s.dilemmas[id]
	delete(s.dilemmas, id)
	return ok, nil
}

func (s *stubStimulusStore) ListDilemmas() ([]*models.EthicalDilemma, error) {
	out := make([]*models.EthicalDilemma, 0, len(s.dilemmas))
	for _, d := range s.dilemmas {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStimulusStore) UpsertConsent(c *models.ConsentConfig) error {
	cp := *c
	s.consents[c.ID] = &cp
	return nil
}

func (s *stubStimulusStore) DeleteConsent(id string) (bool, error) {
	_, ok := s.consents[id]
	delete(s.consents, id)
	return ok, nil
}

func (s *stubStimulusStore) ListConsents() ([]*models.ConsentConfig, error) {
	out := make([]*models.ConsentConfig, 0, len(s.consents))
	for _, c := range s.consents {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func newTestStimulusService(store StimulusStore) *StimulusService {
	svc := NewStimulusService(store)
	n := 0
	svc.idGen = func() string { n++; return string(rune('a' + n - 1)) }
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestSaveAUTValidatesAndSanitizes(t *testing.T) {
	svc := newTestStimulusService(newStubStimulusStore())

	_, err := svc.SaveAUT(models.AUTStimulus{InstructionText: "x"})
	require.Error(t, err)
	_, err = svc.SaveAUT(models.AUTStimulus{ObjectName: "Brick"})
	require.Error(t, err)
	_, err = svc.SaveAUT(models.AUTStimulus{ObjectName: "Brick", InstructionText: "x", SuggestedSeconds: -1})
	require.Error(t, err)

	saved, err := svc.SaveAUT(models.AUTStimulus{
		ObjectName:      "  <b>Brick</b>  ",
		InstructionText: "List uses",
		Active:          true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "&lt;b&gt;Brick&lt;&#x2F;b&gt;", saved.ObjectName)
}

func TestSaveAUTKeepsExplicitID(t *testing.T) {
	store := newStubStimulusStore()
	svc := newTestStimulusService(store)

	_, err := svc.SaveAUT(models.AUTStimulus{ID: "aut1", ObjectName: "Clip", InstructionText: "Uses"})
	require.NoError(t, err)
	saved, err := svc.SaveAUT(models.AUTStimulus{ID: "aut1", ObjectName: "Paper clip", InstructionText: "Uses"})
	require.NoError(t, err)
	assert.Equal(t, "aut1", saved.ID)

	all, err := svc.ListAUT()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Paper clip", all[0].ObjectName)
}

func TestActiveFIQFiltersAndOrders(t *testing.T) {
	svc := newTestStimulusService(newStubStimulusStore())

	for _, st := range []models.FIQStimulus{
		{ID: "3", Title: "C", ImageURL: "/c.png", QuestionText: "?", DisplayOrder: 3, Active: true},
		{ID: "1", Title: "A", ImageURL: "/a.png", QuestionText: "?", DisplayOrder: 1, Active: true},
		{ID: "2", Title: "B", ImageURL: "/b.png", QuestionText: "?", DisplayOrder: 2, Active: false},
	} {
		_, err := svc.SaveFIQ(st)
		require.NoError(t, err)
	}

	active, err := svc.ActiveFIQ()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "1", active[0].ID)
	assert.Equal(t, "3", active[1].ID)

	all, err := svc.ListFIQ()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveDilemmaLikertScale(t *testing.T) {
	svc := newTestStimulusService(newStubStimulusStore())

	d, err := svc.SaveDilemma(models.EthicalDilemma{DilemmaText: "An AI must choose"})
	require.NoError(t, err)
	assert.Equal(t, "1-5", d.LikertScale)

	_, err = svc.SaveDilemma(models.EthicalDilemma{DilemmaText: "x", LikertScale: "1-7"})
	require.Error(t, err)
	_, err = svc.SaveDilemma(models.EthicalDilemma{DilemmaText: "   "})
	require.Error(t, err)
}

func TestConsentLifecycle(t *testing.T) {
	svc := newTestStimulusService(newStubStimulusStore())

	_, err := svc.ActiveConsent()
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)

	saved, err := svc.SaveConsent(models.ConsentConfig{Content: "# TCLE", VersionTag: "v1", Active: true})
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	active, err := svc.ActiveConsent()
	require.NoError(t, err)
	assert.Equal(t, "v1", active.VersionTag)
}

func TestDeleteByID(t *testing.T) {
	svc := newTestStimulusService(newStubStimulusStore())

	st, err := svc.SaveAUT(models.AUTStimulus{ObjectName: "Brick", InstructionText: "Uses"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAUT(st.ID))

	err = svc.DeleteAUT(st.ID)
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)

	err = svc.DeleteAUT("  ")
	se, ok = AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}
