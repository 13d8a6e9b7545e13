package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mentislab/mentis/internal/api"
	"github.com/mentislab/mentis/internal/models"
)

// SQLiteStore is the durable api.Store. All timestamps are stored as
// RFC3339Nano text, the convention SQLite handles best for range queries.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(db *sql.DB, logger *zap.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

var _ api.Store = (*SQLiteStore)(nil)

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func decodeTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := decodeTime(ns.String)
	return &t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (s *SQLiteStore) SaveParticipant(p *models.Participant) error {
	_, err := s.db.Exec(`INSERT INTO participants
		(id, status, started_at, completed_at, device_type, user_agent, screen_resolution, consent_version, current_step)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			current_step = excluded.current_step`,
		p.ID, string(p.Status), encodeTime(p.StartedAt), encodeTimePtr(p.CompletedAt),
		p.DeviceType, p.UserAgent, p.ScreenResolution, p.ConsentVersion, p.CurrentStep)
	return err
}

func (s *SQLiteStore) UpdateParticipantStatus(id string, st models.Status, completedAt *time.Time) error {
	_, err := s.db.Exec(`UPDATE participants SET status = ?, completed_at = ? WHERE id = ?`,
		string(st), encodeTimePtr(completedAt), id)
	return err
}

func (s *SQLiteStore) GetParticipant(id string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT id, status, started_at, completed_at, device_type, user_agent,
		screen_resolution, consent_version, current_step FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) ListParticipants() ([]*models.Participant, error) {
	rows, err := s.db.Query(`SELECT id, status, started_at, completed_at, device_type, user_agent,
		screen_resolution, consent_version, current_step FROM participants ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(r rowScanner) (*models.Participant, error) {
	var p models.Participant
	var status, startedAt string
	var completedAt sql.NullString
	if err := r.Scan(&p.ID, &status, &startedAt, &completedAt, &p.DeviceType,
		&p.UserAgent, &p.ScreenResolution, &p.ConsentVersion, &p.CurrentStep); err != nil {
		return nil, err
	}
	p.Status = models.Status(status)
	p.StartedAt = decodeTime(startedAt)
	p.CompletedAt = decodeTimePtr(completedAt)
	return &p, nil
}

func (s *SQLiteStore) SaveSociodemographic(d *models.Sociodemographic) error {
	_, err := s.db.Exec(`INSERT INTO sociodemographic_data
		(participant_id, age, sex, education_level, profession, socioeconomic_class, ai_experience)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ParticipantID, d.Age, d.Sex, d.Education, d.Profession, d.SocioClass, boolToInt(d.AIExperience))
	return err
}

func (s *SQLiteStore) ListSociodemographics() ([]*models.Sociodemographic, error) {
	rows, err := s.db.Query(`SELECT participant_id, age, sex, education_level, profession,
		socioeconomic_class, ai_experience FROM sociodemographic_data ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Sociodemographic
	for rows.Next() {
		var d models.Sociodemographic
		var ai int
		if err := rows.Scan(&d.ParticipantID, &d.Age, &d.Sex, &d.Education, &d.Profession, &d.SocioClass, &ai); err != nil {
			return nil, err
		}
		d.AIExperience = ai != 0
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveAUTResponse(r *models.AUTResponse) error {
	_, err := s.db.Exec(`INSERT INTO aut_responses
		(participant_id, stimulus_id, response_text, started_at, submitted_at, duration_seconds, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ParticipantID, r.StimulusID, r.Response, encodeTime(r.StartedAt), encodeTime(r.SubmittedAt),
		r.Duration, r.DisplayOrder)
	return err
}

func (s *SQLiteStore) ListAUTResponses() ([]*models.AUTResponse, error) {
	rows, err := s.db.Query(`SELECT participant_id, stimulus_id, response_text, started_at,
		submitted_at, duration_seconds, display_order FROM aut_responses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AUTResponse
	for rows.Next() {
		var r models.AUTResponse
		var started, submitted string
		if err := rows.Scan(&r.ParticipantID, &r.StimulusID, &r.Response, &started, &submitted,
			&r.Duration, &r.DisplayOrder); err != nil {
			return nil, err
		}
		r.StartedAt = decodeTime(started)
		r.SubmittedAt = decodeTime(submitted)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveFIQResponse(r *models.FIQResponse) error {
	_, err := s.db.Exec(`INSERT INTO fiq_responses
		(participant_id, stimulus_id, version_tag, response_text, started_at, submitted_at, duration_seconds, presentation_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ParticipantID, r.StimulusID, r.VersionTag, r.Response, encodeTime(r.StartedAt),
		encodeTime(r.SubmittedAt), r.Duration, r.PresentationOrder)
	return err
}

func (s *SQLiteStore) ListFIQResponses() ([]*models.FIQResponse, error) {
	rows, err := s.db.Query(`SELECT participant_id, stimulus_id, version_tag, response_text,
		started_at, submitted_at, duration_seconds, presentation_order FROM fiq_responses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.FIQResponse
	for rows.Next() {
		var r models.FIQResponse
		var started, submitted string
		if err := rows.Scan(&r.ParticipantID, &r.StimulusID, &r.VersionTag, &r.Response,
			&started, &submitted, &r.Duration, &r.PresentationOrder); err != nil {
			return nil, err
		}
		r.StartedAt = decodeTime(started)
		r.SubmittedAt = decodeTime(submitted)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveDilemmaResponse(r *models.DilemmaResponse) error {
	_, err := s.db.Exec(`INSERT INTO dilemma_responses
		(participant_id, dilemma_id, response_value, justification, started_at, submitted_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ParticipantID, r.DilemmaID, r.LikertValue, r.Justification, encodeTime(r.StartedAt),
		encodeTime(r.SubmittedAt), r.Duration)
	return err
}

func (s *SQLiteStore) ListDilemmaResponses() ([]*models.DilemmaResponse, error) {
	rows, err := s.db.Query(`SELECT participant_id, dilemma_id, response_value, justification,
		started_at, submitted_at, duration_seconds FROM dilemma_responses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.DilemmaResponse
	for rows.Next() {
		var r models.DilemmaResponse
		var started, submitted string
		if err := rows.Scan(&r.ParticipantID, &r.DilemmaID, &r.LikertValue, &r.Justification,
			&started, &submitted, &r.Duration); err != nil {
			return nil, err
		}
		r.StartedAt = decodeTime(started)
		r.SubmittedAt = decodeTime(submitted)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveScreenTimestamp(ts *models.ScreenTimestamp) error {
	_, err := s.db.Exec(`INSERT INTO screen_timestamps
		(participant_id, screen_name, started_at, submitted_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?)`,
		ts.ParticipantID, ts.ScreenName, encodeTime(ts.StartedAt), encodeTimePtr(ts.SubmittedAt), ts.Duration)
	return err
}

func (s *SQLiteStore) ListScreenTimestamps() ([]*models.ScreenTimestamp, error) {
	rows, err := s.db.Query(`SELECT participant_id, screen_name, started_at, submitted_at,
		duration_seconds FROM screen_timestamps ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.ScreenTimestamp
	for rows.Next() {
		var ts models.ScreenTimestamp
		var started string
		var submitted sql.NullString
		if err := rows.Scan(&ts.ParticipantID, &ts.ScreenName, &started, &submitted, &ts.Duration); err != nil {
			return nil, err
		}
		ts.StartedAt = decodeTime(started)
		ts.SubmittedAt = decodeTimePtr(submitted)
		out = append(out, &ts)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertAUTStimulus(st *models.AUTStimulus) error {
	_, err := s.db.Exec(`INSERT INTO aut_stimuli
		(id, object_name, object_image_url, instruction_text, suggested_time_seconds, display_order, version_tag, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			object_name = excluded.object_name,
			object_image_url = excluded.object_image_url,
			instruction_text = excluded.instruction_text,
			suggested_time_seconds = excluded.suggested_time_seconds,
			display_order = excluded.display_order,
			version_tag = excluded.version_tag,
			is_active = excluded.is_active`,
		st.ID, st.ObjectName, st.ObjectImageURL, st.InstructionText, st.SuggestedSeconds,
		st.DisplayOrder, st.VersionTag, boolToInt(st.Active))
	return err
}

func (s *SQLiteStore) DeleteAUTStimulus(id string) (bool, error) {
	return s.deleteByID("aut_stimuli", id)
}

func (s *SQLiteStore) ListAUTStimuli() ([]*models.AUTStimulus, error) {
	rows, err := s.db.Query(`SELECT id, object_name, object_image_url, instruction_text,
		suggested_time_seconds, display_order, version_tag, is_active FROM aut_stimuli ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AUTStimulus
	for rows.Next() {
		var st models.AUTStimulus
		var active int
		if err := rows.Scan(&st.ID, &st.ObjectName, &st.ObjectImageURL, &st.InstructionText,
			&st.SuggestedSeconds, &st.DisplayOrder, &st.VersionTag, &active); err != nil {
			return nil, err
		}
		st.Active = active != 0
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertFIQStimulus(st *models.FIQStimulus) error {
	_, err := s.db.Exec(`INSERT INTO fiq_stimuli
		(id, title, image_url, question_text, display_order, version_tag, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			image_url = excluded.image_url,
			question_text = excluded.question_text,
			display_order = excluded.display_order,
			version_tag = excluded.version_tag,
			is_active = excluded.is_active`,
		st.ID, st.Title, st.ImageURL, st.QuestionText, st.DisplayOrder, st.VersionTag, boolToInt(st.Active))
	return err
}

func (s *SQLiteStore) DeleteFIQStimulus(id string) (bool, error) {
	return s.deleteByID("fiq_stimuli", id)
}

func (s *SQLiteStore) ListFIQStimuli() ([]*models.FIQStimulus, error) {
	rows, err := s.db.Query(`SELECT id, title, image_url, question_text, display_order,
		version_tag, is_active FROM fiq_stimuli ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.FIQStimulus
	for rows.Next() {
		var st models.FIQStimulus
		var active int
		if err := rows.Scan(&st.ID, &st.Title, &st.ImageURL, &st.QuestionText,
			&st.DisplayOrder, &st.VersionTag, &active); err != nil {
			return nil, err
		}
		st.Active = active != 0
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertDilemma(d *models.EthicalDilemma) error {
	_, err := s.db.Exec(`INSERT INTO ethical_dilemmas
		(id, dilemma_text, likert_scale, display_order, version_tag, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dilemma_text = excluded.dilemma_text,
			likert_scale = excluded.likert_scale,
			display_order = excluded.display_order,
			version_tag = excluded.version_tag,
			is_active = excluded.is_active`,
		d.ID, d.DilemmaText, d.LikertScale, d.DisplayOrder, d.VersionTag, boolToInt(d.Active))
	return err
}

func (s *SQLiteStore) DeleteDilemma(id string) (bool, error) {
	return s.deleteByID("ethical_dilemmas", id)
}

func (s *SQLiteStore) ListDilemmas() ([]*models.EthicalDilemma, error) {
	rows, err := s.db.Query(`SELECT id, dilemma_text, likert_scale, display_order, version_tag,
		is_active FROM ethical_dilemmas ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.EthicalDilemma
	for rows.Next() {
		var d models.EthicalDilemma
		var active int
		if err := rows.Scan(&d.ID, &d.DilemmaText, &d.LikertScale, &d.DisplayOrder, &d.VersionTag, &active); err != nil {
			return nil, err
		}
		d.Active = active != 0
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertConsent(c *models.ConsentConfig) error {
	_, err := s.db.Exec(`INSERT INTO tcle_configs
		(id, content, version_tag, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			version_tag = excluded.version_tag,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		c.ID, c.Content, c.VersionTag, boolToInt(c.Active), encodeTime(c.CreatedAt), encodeTime(c.UpdatedAt))
	return err
}

func (s *SQLiteStore) DeleteConsent(id string) (bool, error) {
	return s.deleteByID("tcle_configs", id)
}

func (s *SQLiteStore) ListConsents() ([]*models.ConsentConfig, error) {
	rows, err := s.db.Query(`SELECT id, content, version_tag, is_active, created_at, updated_at
		FROM tcle_configs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.ConsentConfig
	for rows.Next() {
		var c models.ConsentConfig
		var active int
		var created, updated string
		if err := rows.Scan(&c.ID, &c.Content, &c.VersionTag, &active, &created, &updated); err != nil {
			return nil, err
		}
		c.Active = active != 0
		c.CreatedAt = decodeTime(created)
		c.UpdatedAt = decodeTime(updated)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// deleteByID runs a delete against one of the stimulus tables. Table names
// are compile-time constants at every call site, never user input.
func (s *SQLiteStore) deleteByID(table, id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("rows affected unavailable", zap.String("table", table), zap.Error(err))
		return true, nil
	}
	return n > 0, nil
}
