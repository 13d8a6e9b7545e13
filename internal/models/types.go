package models

import "time"

// Status tracks where a participant is in their run. The initial state is
// StatusInProgress; every other status is terminal and cannot be left.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeclined   Status = "declined"
	StatusExpired    Status = "expired"
	StatusAbandoned  Status = "abandoned"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusDeclined, StatusExpired, StatusAbandoned:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool { return s.Valid() && s != StatusInProgress }

// Participant is one anonymous run of the experiment. PII is minimized:
// only coarse device metadata is captured.
type Participant struct {
	ID               string     `json:"id"`
	Status           Status     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DeviceType       string     `json:"device_type"` // "mobile" | "desktop"
	UserAgent        string     `json:"user_agent"`
	ScreenResolution string     `json:"screen_resolution"`
	ConsentVersion   string     `json:"consent_version,omitempty"`
	CurrentStep      int        `json:"current_step"`
}

// Sociodemographic is the pre-task questionnaire submission.
type Sociodemographic struct {
	ParticipantID string `json:"participant_id"`
	Age           int    `json:"age"`
	Sex           string `json:"sex"`
	Education     string `json:"education_level"`
	Profession    string `json:"profession"`
	SocioClass    string `json:"socioeconomic_class"`
	AIExperience  bool   `json:"ai_experience"`
}

// AUTStimulus is an alternative-uses prompt (name as many uses for an object).
type AUTStimulus struct {
	ID               string `json:"id"`
	ObjectName       string `json:"object_name"`
	ObjectImageURL   string `json:"object_image_url,omitempty"`
	InstructionText  string `json:"instruction_text"`
	SuggestedSeconds int    `json:"suggested_time_seconds"`
	DisplayOrder     int    `json:"display_order"`
	VersionTag       string `json:"version_tag,omitempty"`
	Active           bool   `json:"is_active"`
}

// FIQStimulus is a figural-interpretation image prompt. Presentation order is
// randomized per participant, independent of DisplayOrder.
type FIQStimulus struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ImageURL     string `json:"image_url"`
	QuestionText string `json:"question_text"`
	DisplayOrder int    `json:"display_order"`
	VersionTag   string `json:"version_tag,omitempty"`
	Active       bool   `json:"is_active"`
}

// EthicalDilemma is a Likert-rated ethical scenario.
type EthicalDilemma struct {
	ID           string `json:"id"`
	DilemmaText  string `json:"dilemma_text"`
	LikertScale  string `json:"likert_scale"` // always "1-5"
	DisplayOrder int    `json:"display_order"`
	VersionTag   string `json:"version_tag,omitempty"`
	Active       bool   `json:"is_active"`
}

// ConsentConfig is a versioned consent document (markdown).
type ConsentConfig struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	VersionTag string    `json:"version_tag"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AUTResponse is one free-text answer to an AUT stimulus.
type AUTResponse struct {
	ParticipantID string    `json:"participant_id"`
	StimulusID    string    `json:"stimulus_id"`
	Response      string    `json:"response_text"`
	StartedAt     time.Time `json:"started_at"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Duration      int       `json:"duration_seconds"`
	DisplayOrder  int       `json:"display_order"`
}

// FIQResponse is one free-text answer to a FIQ image. PresentationOrder is the
// position the stimulus was shown at after per-session randomization.
type FIQResponse struct {
	ParticipantID     string    `json:"participant_id"`
	StimulusID        string    `json:"stimulus_id"`
	VersionTag        string    `json:"version_tag,omitempty"`
	Response          string    `json:"response_text"`
	StartedAt         time.Time `json:"started_at"`
	SubmittedAt       time.Time `json:"submitted_at"`
	Duration          int       `json:"duration_seconds"`
	PresentationOrder int       `json:"presentation_order"`
}

// DilemmaResponse is one Likert answer (1..5) with optional justification.
type DilemmaResponse struct {
	ParticipantID string    `json:"participant_id"`
	DilemmaID     string    `json:"dilemma_id"`
	LikertValue   int       `json:"response_value"`
	Justification string    `json:"justification,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Duration      int       `json:"duration_seconds"`
}

// ScreenTimestamp records wall-clock dwell time for one screen visit.
// SubmittedAt is nil while the entry is still open.
type ScreenTimestamp struct {
	ParticipantID string     `json:"participant_id"`
	ScreenName    string     `json:"screen_name"`
	StartedAt     time.Time  `json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Duration      int        `json:"duration_seconds,omitempty"`
}

// Stats summarizes participant counts by status.
type Stats struct {
	Total      int `json:"total"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Declined   int `json:"declined"`
	Expired    int `json:"expired"`
	Abandoned  int `json:"abandoned"`
}

// ActivityEntry is one row of the admin dashboard's recent-activity feed.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
