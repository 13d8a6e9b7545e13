package api

import (
	"time"

	"github.com/mentislab/mentis/internal/models"
	"github.com/mentislab/mentis/internal/services"
	"github.com/mentislab/mentis/internal/session"
)

// Store is the durable side of the platform: participant rows, their
// collected datasets, and the admin-configured stimulus catalog. Both the
// in-memory store and the SQLite store implement it.
type Store interface {
	SaveParticipant(p *models.Participant) error
	UpdateParticipantStatus(id string, st models.Status, completedAt *time.Time) error
	GetParticipant(id string) (*models.Participant, error)
	ListParticipants() ([]*models.Participant, error)

	SaveSociodemographic(d *models.Sociodemographic) error
	ListSociodemographics() ([]*models.Sociodemographic, error)

	SaveAUTResponse(r *models.AUTResponse) error
	ListAUTResponses() ([]*models.AUTResponse, error)
	SaveFIQResponse(r *models.FIQResponse) error
	ListFIQResponses() ([]*models.FIQResponse, error)
	SaveDilemmaResponse(r *models.DilemmaResponse) error
	ListDilemmaResponses() ([]*models.DilemmaResponse, error)
	SaveScreenTimestamp(ts *models.ScreenTimestamp) error
	ListScreenTimestamps() ([]*models.ScreenTimestamp, error)

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

// A Store doubles as the session outbox sink and backs every service.
var (
	_ session.Sink           = Store(nil)
	_ services.StimulusStore = Store(nil)
	_ services.StatsStore    = Store(nil)
	_ services.ExportStore   = Store(nil)
)
