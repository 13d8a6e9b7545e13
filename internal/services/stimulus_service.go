package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mentislab/mentis/internal/models"
	"github.com/mentislab/mentis/internal/utils"
)

// StimulusStore is the persistence surface for admin-configured content.
type StimulusStore interface {
	UpsertAUTStimulus(st *models.AUTStimulus) error
	DeleteAUTStimulus(id string) (bool, error)
	ListAUTStimuli() ([]*models.AUTStimulus, error)

	UpsertFIQStimulus(st *models.FIQStimulus) error
	DeleteFIQStimulus(id string) (bool, error)
	ListFIQStimuli() ([]*models.FIQStimulus, error)

	UpsertDilemma(d *models.EthicalDilemma) error
	DeleteDilemma(id string) (bool, error)
	ListDilemmas() ([]*models.EthicalDilemma, error)

	UpsertConsent(c *models.ConsentConfig) error
	DeleteConsent(id string) (bool, error)
	ListConsents() ([]*models.ConsentConfig, error)
}

// StimulusService validates and persists the four admin-managed entity kinds.
// Saved free text is HTML-escaped before storage; participants only ever see
// active entries, sorted by display order.
type StimulusService struct {
	store StimulusStore
	now   func() time.Time
	idGen func() string
}

func NewStimulusService(store StimulusStore) *StimulusService {
	return &StimulusService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *StimulusService) SaveAUT(st models.AUTStimulus) (*models.AUTStimulus, error) {
	st.ObjectName = utils.SanitizeText(strings.TrimSpace(st.ObjectName))
	st.InstructionText = utils.SanitizeText(strings.TrimSpace(st.InstructionText))
	if st.ObjectName == "" {
		return nil, NewInvalidError("object_name required")
	}
	if st.InstructionText == "" {
		return nil, NewInvalidError("instruction_text required")
	}
	if st.SuggestedSeconds < 0 {
		return nil, NewInvalidError("suggested_time_seconds must not be negative")
	}
	if st.ID == "" {
		st.ID = s.idGen()
	}
	if err := s.store.UpsertAUTStimulus(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StimulusService) DeleteAUT(id string) error { return s.deleteByID(id, s.store.DeleteAUTStimulus) }

// ListAUT returns every AUT stimulus for the admin panel, display order first.
func (s *StimulusService) ListAUT() ([]*models.AUTStimulus, error) {
	out, err := s.store.ListAUTStimuli()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ActiveAUT returns the ordered, already-filtered-to-active sequence shown to
// participants.
func (s *StimulusService) ActiveAUT() ([]models.AUTStimulus, error) {
	all, err := s.ListAUT()
	if err != nil {
		return nil, err
	}
	out := make([]models.AUTStimulus, 0, len(all))
	for _, st := range all {
		if st.Active {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *StimulusService) SaveFIQ(st models.FIQStimulus) (*models.FIQStimulus, error) {
	st.Title = utils.SanitizeText(strings.TrimSpace(st.Title))
	st.QuestionText = utils.SanitizeText(strings.TrimSpace(st.QuestionText))
	if st.Title == "" {
		return nil, NewInvalidError("title required")
	}
	if strings.TrimSpace(st.ImageURL) == "" {
		return nil, NewInvalidError("image_url required")
	}
	if st.QuestionText == "" {
		return nil, NewInvalidError("question_text required")
	}
	if st.ID == "" {
		st.ID = s.idGen()
	}
	if err := s.store.UpsertFIQStimulus(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StimulusService) DeleteFIQ(id string) error { return s.deleteByID(id, s.store.DeleteFIQStimulus) }

func (s *StimulusService) ListFIQ() ([]*models.FIQStimulus, error) {
	out, err := s.store.ListFIQStimuli()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ActiveFIQ returns active FIQ stimuli in display order. Per-participant
// randomization happens in the session, not here.
func (s *StimulusService) ActiveFIQ() ([]models.FIQStimulus, error) {
	all, err := s.ListFIQ()
	if err != nil {
		return nil, err
	}
	out := make([]models.FIQStimulus, 0, len(all))
	for _, st := range all {
		if st.Active {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *StimulusService) SaveDilemma(d models.EthicalDilemma) (*models.EthicalDilemma, error) {
	d.DilemmaText = utils.SanitizeText(strings.TrimSpace(d.DilemmaText))
	if d.DilemmaText == "" {
		return nil, NewInvalidError("dilemma_text required")
	}
	if d.LikertScale == "" {
		d.LikertScale = "1-5"
	}
	if d.LikertScale != "1-5" {
		return nil, NewInvalidError("likert_scale must be 1-5")
	}
	if d.ID == "" {
		d.ID = s.idGen()
	}
	if err := s.store.UpsertDilemma(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *StimulusService) DeleteDilemma(id string) error { return s.deleteByID(id, s.store.DeleteDilemma) }

func (s *StimulusService) ListDilemmas() ([]*models.EthicalDilemma, error) {
	out, err := s.store.ListDilemmas()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *StimulusService) ActiveDilemmas() ([]models.EthicalDilemma, error) {
	all, err := s.ListDilemmas()
	if err != nil {
		return nil, err
	}
	out := make([]models.EthicalDilemma, 0, len(all))
	for _, d := range all {
		if d.Active {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *StimulusService) SaveConsent(c models.ConsentConfig) (*models.ConsentConfig, error) {
	if strings.TrimSpace(c.Content) == "" {
		return nil, NewInvalidError("content required")
	}
	if strings.TrimSpace(c.VersionTag) == "" {
		return nil, NewInvalidError("version_tag required")
	}
	now := s.now()
	if c.ID == "" {
		c.ID = s.idGen()
		c.CreatedAt = now
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := s.store.UpsertConsent(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *StimulusService) DeleteConsent(id string) error { return s.deleteByID(id, s.store.DeleteConsent) }

func (s *StimulusService) ListConsents() ([]*models.ConsentConfig, error) {
	return s.store.ListConsents()
}

// ActiveConsent returns the consent document participants must accept, or a
// not-found error when none is active.
func (s *StimulusService) ActiveConsent() (*models.ConsentConfig, error) {
	all, err := s.store.ListConsents()
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, NewNotFoundError("no active consent document")
}

func (s *StimulusService) deleteByID(id string, del func(string) (bool, error)) error {
	if strings.TrimSpace(id) == "" {
		return NewInvalidError("id required")
	}
	ok, err := del(id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("not found")
	}
	return nil
}
