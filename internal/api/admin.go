package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mentislab/mentis/internal/models"
	"github.com/mentislab/mentis/internal/services"
)

// adminRequest is the envelope of the single admin endpoint. Every action
// (and its payload) travels in the body; only login carries the password,
// every other action carries the token it got back.
type adminRequest struct {
	Action   string `json:"action"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`

	// export
	Format   string                   `json:"format,omitempty"`
	Selected services.ExportSelection `json:"selectedData,omitempty"`

	// entity save/delete
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// upload ("data" is base64 per encoding/json convention)
	File *adminFile `json:"file,omitempty"`
}

type adminFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// handleAdmin dispatches admin actions: login, stats, export, per-entity
// *-list / *-save / *-delete, and upload.
func (rt *Router) handleAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Action == "login" {
		token, err := rt.auth.Login(req.Password)
		if err != nil {
			// Wrong password and missing configuration answer alike,
			// so the response leaks nothing about server state.
			writeErr(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": token})
		return
	}

	if err := rt.auth.Verify(req.Token); err != nil {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	switch req.Action {
	case "stats":
		res, err := rt.stats.Stats()
		if err != nil {
			rt.adminErr(w, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case "export":
		rt.handleExport(w, req)

	case "aut-list":
		rt.adminList(w, req.Action, func() (any, error) { return rt.stimuli.ListAUT() })
	case "aut-save":
		var st models.AUTStimulus
		if !decodePayload(w, req.Payload, &st) {
			return
		}
		rt.adminSave(w, req.Action, func() (any, error) { return rt.stimuli.SaveAUT(st) })
	case "aut-delete":
		rt.adminDelete(w, req.Action, func() error { return rt.stimuli.DeleteAUT(req.ID) })

	case "fiq-list":
		rt.adminList(w, req.Action, func() (any, error) { return rt.stimuli.ListFIQ() })
	case "fiq-save":
		var st models.FIQStimulus
		if !decodePayload(w, req.Payload, &st) {
			return
		}
		rt.adminSave(w, req.Action, func() (any, error) { return rt.stimuli.SaveFIQ(st) })
	case "fiq-delete":
		rt.adminDelete(w, req.Action, func() error { return rt.stimuli.DeleteFIQ(req.ID) })

	case "dilemma-list":
		rt.adminList(w, req.Action, func() (any, error) { return rt.stimuli.ListDilemmas() })
	case "dilemma-save":
		var d models.EthicalDilemma
		if !decodePayload(w, req.Payload, &d) {
			return
		}
		rt.adminSave(w, req.Action, func() (any, error) { return rt.stimuli.SaveDilemma(d) })
	case "dilemma-delete":
		rt.adminDelete(w, req.Action, func() error { return rt.stimuli.DeleteDilemma(req.ID) })

	case "tcle-list":
		rt.adminList(w, req.Action, func() (any, error) { return rt.stimuli.ListConsents() })
	case "tcle-save":
		var c models.ConsentConfig
		if !decodePayload(w, req.Payload, &c) {
			return
		}
		rt.adminSave(w, req.Action, func() (any, error) { return rt.stimuli.SaveConsent(c) })
	case "tcle-delete":
		rt.adminDelete(w, req.Action, func() error { return rt.stimuli.DeleteConsent(req.ID) })

	case "upload":
		if req.File == nil {
			writeErr(w, http.StatusBadRequest, "file required")
			return
		}
		name, err := rt.uploads.Store(req.File.Name, req.File.ContentType, req.File.Data)
		if err != nil {
			rt.adminErr(w, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "file": name, "url": "/uploads/" + name})

	default:
		writeErr(w, http.StatusBadRequest, "Invalid action")
	}
}

func (rt *Router) handleExport(w http.ResponseWriter, req adminRequest) {
	if req.Format == "csv" {
		data, err := rt.export.ExportCSV(req.Selected)
		if err != nil {
			rt.adminErr(w, req.Action, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=export.csv")
		_, _ = w.Write(data)
		return
	}
	data, err := rt.export.ExportJSON(req.Selected)
	if err != nil {
		rt.adminErr(w, req.Action, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (rt *Router) adminList(w http.ResponseWriter, action string, list func() (any, error)) {
	out, err := list()
	if err != nil {
		rt.adminErr(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) adminSave(w http.ResponseWriter, action string, save func() (any, error)) {
	out, err := save()
	if err != nil {
		rt.adminErr(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) adminDelete(w http.ResponseWriter, action string, del func() error) {
	if err := del(); err != nil {
		rt.adminErr(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) adminErr(w http.ResponseWriter, action string, err error) {
	rt.logger.Warn("admin action failed", zap.String("action", action), zap.Error(err))
	writeServiceErr(w, err)
}

func decodePayload(w http.ResponseWriter, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		writeErr(w, http.StatusBadRequest, "payload required")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}
