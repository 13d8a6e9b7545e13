package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mentislab/mentis/internal/models"
	"github.com/mentislab/mentis/internal/session"
)

// handleBundle returns everything a new participant tab needs before consent:
// the active consent document and the active stimulus sets in display order.
// FIQ order is randomized per participant at session creation, not here.
func (rt *Router) handleBundle(w http.ResponseWriter, r *http.Request) {
	consent, err := rt.stimuli.ActiveConsent()
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	aut, err := rt.stimuli.ActiveAUT()
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	dilemmas, err := rt.stimuli.ActiveDilemmas()
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consent":  consent,
		"aut":      aut,
		"dilemmas": dilemmas,
	})
}

// handleCreateParticipant opens a new session: fresh participant id, device
// classification, fixed randomized FIQ order, and a running expiration guard.
func (rt *Router) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserAgent    string `json:"user_agent"`
		ScreenWidth  int    `json:"screen_width"`
		ScreenHeight int    `json:"screen_height"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	fiq, err := rt.stimuli.ActiveFIQ()
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	consentVersion := ""
	if consent, err := rt.stimuli.ActiveConsent(); err == nil {
		consentVersion = consent.VersionTag
	}

	sess := session.New(session.Config{
		FIQ:            fiq,
		TTL:            rt.sessionTTL,
		ConsentVersion: consentVersion,
		Outbox:         rt.outbox,
		Sink:           rt.store,
	})
	p, err := sess.Initialize(session.DeviceMeta{
		UserAgent:    req.UserAgent,
		ScreenWidth:  req.ScreenWidth,
		ScreenHeight: req.ScreenHeight,
	})
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	guard := session.Watch(sess, rt.guardInterval, func() {
		rt.logger.Info("session expired", zap.String("participant_id", p.ID))
	})
	rt.sessions.add(p.ID, sess, guard)

	writeJSON(w, http.StatusCreated, map[string]any{
		"participant": p,
		"fiq_order":   sess.FIQOrder(),
	})
}

func (rt *Router) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participant": sess.Participant(),
		"expired":     sess.Expired(),
	})
}

func (rt *Router) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req struct {
		Status models.Status `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.UpdateStatus(req.Status); err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participant": sess.Participant()})
}

func (rt *Router) handleAdvanceStep(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req struct {
		Step int `json:"step"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess.AdvanceStep(req.Step)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleSociodemographic(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req models.Sociodemographic
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Age < 18 || req.Age > 120 {
		writeErr(w, http.StatusBadRequest, "age must be between 18 and 120")
		return
	}
	if err := sess.SetSociodemographic(req); err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type responseTimes struct {
	StartedAt   time.Time `json:"started_at"`
	SubmittedAt time.Time `json:"submitted_at"`
	Duration    int       `json:"duration_seconds"`
}

func (rt *Router) handleAUTResponse(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req struct {
		StimulusID   string `json:"stimulus_id"`
		Response     string `json:"response_text"`
		DisplayOrder int    `json:"display_order"`
		responseTimes
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StimulusID == "" || req.Response == "" {
		writeErr(w, http.StatusBadRequest, "stimulus_id and response_text required")
		return
	}
	err := sess.RecordAUT(models.AUTResponse{
		StimulusID:   req.StimulusID,
		Response:     req.Response,
		StartedAt:    req.StartedAt,
		SubmittedAt:  req.SubmittedAt,
		Duration:     req.Duration,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleFIQResponse(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req struct {
		StimulusID        string `json:"stimulus_id"`
		VersionTag        string `json:"version_tag"`
		Response          string `json:"response_text"`
		PresentationOrder int    `json:"presentation_order"`
		responseTimes
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StimulusID == "" || req.Response == "" {
		writeErr(w, http.StatusBadRequest, "stimulus_id and response_text required")
		return
	}
	err := sess.RecordFIQ(models.FIQResponse{
		StimulusID:        req.StimulusID,
		VersionTag:        req.VersionTag,
		Response:          req.Response,
		StartedAt:         req.StartedAt,
		SubmittedAt:       req.SubmittedAt,
		Duration:          req.Duration,
		PresentationOrder: req.PresentationOrder,
	})
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleDilemmaResponse(w http.ResponseWriter, r *http.Request) {
	sess := rt.sessions.get(mux.Vars(r)["id"])
	if sess == nil {
		writeErr(w, http.StatusNotFound, "participant not found")
		return
	}
	var req struct {
		DilemmaID     string `json:"dilemma_id"`
		LikertValue   int    `json:"response_value"`
		Justification string `json:"justification"`
		responseTimes
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DilemmaID == "" {
		writeErr(w, http.StatusBadRequest, "dilemma_id required")
		return
	}
	err := sess.RecordDilemma(models.DilemmaResponse{
		DilemmaID:     req.DilemmaID,
		LikertValue:   req.LikertValue,
		Justification: req.Justification,
		StartedAt:     req.StartedAt,
		SubmittedAt:   req.SubmittedAt,
		Duration:      req.Duration,
	})
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Screen timing never fails the navigation flow: missing sessions and
// unmatched ends both answer ok.
func (rt *Router) handleScreenStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScreenName string `json:"screen_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if sess := rt.sessions.get(mux.Vars(r)["id"]); sess != nil {
		sess.StartScreen(req.ScreenName)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleScreenEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScreenName string `json:"screen_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if sess := rt.sessions.get(mux.Vars(r)["id"]); sess != nil {
		sess.EndScreen(req.ScreenName)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
