package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/mentislab/mentis/internal/models"
)

const testAdminPassword = "correct-horse"

type testEnv struct {
	rt      *Router
	handler http.Handler
	store   *MemoryStore
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	if err := SeedDefaults(store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	o := Options{
		Store:         store,
		JWTSecret:     []byte("test-secret"),
		AdminPassword: testAdminPassword,
		UploadDir:     t.TempDir(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	rt := NewRouter(o)
	t.Cleanup(rt.Close)

	r := mux.NewRouter()
	rt.Register(r)
	return &testEnv{rt: rt, handler: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{
		"action":   "login",
		"password": testAdminPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	decodeInto(t, rec, &res)
	if res.Token == "" {
		t.Fatal("empty token")
	}
	return res.Token
}

func (e *testEnv) createParticipant(t *testing.T, width int) (string, int) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/participants", map[string]any{
		"user_agent":    "test-agent",
		"screen_width":  width,
		"screen_height": 900,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create participant: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Participant models.Participant   `json:"participant"`
		FIQOrder    []models.FIQStimulus `json:"fiq_order"`
	}
	decodeInto(t, rec, &res)
	if res.Participant.ID == "" {
		t.Fatal("missing participant id")
	}
	return res.Participant.ID, len(res.FIQOrder)
}

func TestAdminLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "login", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	e.login(t)
}

func TestAdminActionsRequireToken(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "stats"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "stats", "token": "forged"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with forged token, got %d", rec.Code)
	}
}

func TestAdminUnknownAction(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "drop-tables", "token": tok})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)
	e.createParticipant(t, 1280)

	// participant rows land via the outbox; settle it before asserting
	e.rt.outbox.Flush()
	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "stats", "token": tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Stats          models.Stats           `json:"stats"`
		RecentActivity []models.ActivityEntry `json:"recentActivity"`
	}
	decodeInto(t, rec, &res)
	if res.Stats.Total != 1 || res.Stats.InProgress != 1 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if len(res.RecentActivity) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(res.RecentActivity))
	}
}

func TestAdminStimulusRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{
		"action": "aut-save",
		"token":  tok,
		"payload": map[string]any{
			"object_name":      "Garrafa",
			"instruction_text": "Liste usos alternativos para uma garrafa.",
			"display_order":    3,
			"is_active":        true,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("aut-save: %d %s", rec.Code, rec.Body.String())
	}
	var saved models.AUTStimulus
	decodeInto(t, rec, &saved)
	if saved.ID == "" {
		t.Fatal("save did not assign an id")
	}

	rec = e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "aut-list", "token": tok})
	var list []models.AUTStimulus
	decodeInto(t, rec, &list)
	if len(list) != 3 { // two seeded + one saved
		t.Fatalf("expected 3 stimuli, got %d", len(list))
	}

	rec = e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "aut-delete", "token": tok, "id": saved.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("aut-delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "aut-delete", "token": tok, "id": saved.ID})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAdminExportCSV(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)
	e.createParticipant(t, 1280)
	e.rt.outbox.Flush()

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{
		"action":       "export",
		"token":        tok,
		"format":       "csv",
		"selectedData": map[string]bool{"participants": true},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("# participants\n")) {
		t.Fatalf("unexpected CSV body: %q", rec.Body.String())
	}
}

func TestAdminExportRequiresSelection(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{"action": "export", "token": tok})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUpload(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/admin", map[string]any{
		"action": "upload",
		"token":  tok,
		"file": map[string]any{
			"name":         "fig.png",
			"content_type": "image/png",
			"data":         []byte{0x89, 'P', 'N', 'G'},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		URL string `json:"url"`
	}
	decodeInto(t, rec, &res)
	if res.URL == "" || res.URL == "/uploads/" {
		t.Fatalf("unexpected url %q", res.URL)
	}

	rec = e.do(t, http.MethodPost, "/api/admin", map[string]any{
		"action": "upload",
		"token":  tok,
		"file":   map[string]any{"name": "evil.exe", "content_type": "application/octet-stream", "data": []byte{1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disallowed type, got %d", rec.Code)
	}
}

func TestBundle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/bundle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bundle: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Consent  models.ConsentConfig    `json:"consent"`
		AUT      []models.AUTStimulus    `json:"aut"`
		Dilemmas []models.EthicalDilemma `json:"dilemmas"`
	}
	decodeInto(t, rec, &res)
	if res.Consent.VersionTag != "TCLE_v1.0" {
		t.Fatalf("unexpected consent %q", res.Consent.VersionTag)
	}
	if len(res.AUT) != 2 || len(res.Dilemmas) != 2 {
		t.Fatalf("unexpected bundle sizes aut=%d dilemmas=%d", len(res.AUT), len(res.Dilemmas))
	}
}

func TestParticipantNotFound(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/participants/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCompleteExperimentFlow(t *testing.T) {
	e := newTestEnv(t)
	id, fiqCount := e.createParticipant(t, 1280)
	if fiqCount != 2 {
		t.Fatalf("expected 2 seeded FIQ stimuli, got %d", fiqCount)
	}
	base := fmt.Sprintf("/api/participants/%s", id)

	rec := e.do(t, http.MethodPost, base+"/sociodemographic", map[string]any{
		"age": 30, "sex": "male", "education_level": "graduate",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sociodemographic: %d %s", rec.Code, rec.Body.String())
	}

	for i := 1; i <= 2; i++ {
		rec = e.do(t, http.MethodPost, base+"/responses/aut", map[string]any{
			"stimulus_id": fmt.Sprintf("aut%d", i), "response_text": "paperweight", "display_order": i,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("aut response %d: %d %s", i, rec.Code, rec.Body.String())
		}
		rec = e.do(t, http.MethodPost, base+"/responses/fiq", map[string]any{
			"stimulus_id": fmt.Sprintf("fiq%d", i), "response_text": "a bird", "presentation_order": i,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("fiq response %d: %d %s", i, rec.Code, rec.Body.String())
		}
		rec = e.do(t, http.MethodPost, base+"/responses/dilemma", map[string]any{
			"dilemma_id": fmt.Sprintf("dil%d", i), "response_value": 4,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("dilemma response %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec = e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}

	e.rt.outbox.Flush()
	auts, _ := e.store.ListAUTResponses()
	fiqs, _ := e.store.ListFIQResponses()
	dils, _ := e.store.ListDilemmaResponses()
	if len(auts)+len(fiqs)+len(dils) != 6 {
		t.Fatalf("expected 6 persisted responses, got %d/%d/%d", len(auts), len(fiqs), len(dils))
	}
	ps, _ := e.store.ListParticipants()
	if len(ps) != 1 {
		t.Fatalf("expected 1 persisted participant, got %d", len(ps))
	}
	if ps[0].Status != models.StatusCompleted || ps[0].CompletedAt == nil {
		t.Fatalf("persisted participant not completed: %+v", ps[0])
	}
}

func TestDeclineFlow(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createParticipant(t, 390)
	base := fmt.Sprintf("/api/participants/%s", id)

	rec := e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "declined"})
	if rec.Code != http.StatusOK {
		t.Fatalf("decline: %d %s", rec.Code, rec.Body.String())
	}

	// recording after decline is rejected
	rec = e.do(t, http.MethodPost, base+"/responses/aut", map[string]any{
		"stimulus_id": "aut1", "response_text": "nope",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after decline, got %d", rec.Code)
	}

	e.rt.outbox.Flush()
	auts, _ := e.store.ListAUTResponses()
	if len(auts) != 0 {
		t.Fatalf("expected 0 responses, got %d", len(auts))
	}
	ps, _ := e.store.ListParticipants()
	if len(ps) != 1 || ps[0].Status != models.StatusDeclined {
		t.Fatalf("expected a declined participant, got %+v", ps)
	}
	if ps[0].DeviceType != "mobile" {
		t.Fatalf("narrow viewport must classify as mobile, got %s", ps[0].DeviceType)
	}
}

func TestStatusTransitionsOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createParticipant(t, 1280)
	base := fmt.Sprintf("/api/participants/%s", id)

	rec := e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "paused"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "in_progress"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on revert, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, base+"/status", map[string]any{"status": "abandoned"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 leaving terminal, got %d", rec.Code)
	}
}

func TestScreenTimingNeverBlocksNavigation(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createParticipant(t, 1280)
	base := fmt.Sprintf("/api/participants/%s", id)

	// unmatched end and unknown participant both answer ok
	rec := e.do(t, http.MethodPost, base+"/screens/end", map[string]any{"screen_name": "never-started"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unmatched end: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/participants/ghost/screens/start", map[string]any{"screen_name": "consent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown participant start: %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, base+"/screens/start", map[string]any{"screen_name": "consent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, base+"/screens/end", map[string]any{"screen_name": "consent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("end: %d", rec.Code)
	}

	e.rt.outbox.Flush()
	screens, _ := e.store.ListScreenTimestamps()
	if len(screens) != 1 {
		t.Fatalf("expected 1 persisted screen entry, got %d", len(screens))
	}
	if screens[0].ScreenName != "consent" || screens[0].SubmittedAt == nil {
		t.Fatalf("unexpected screen entry %+v", screens[0])
	}
}

func TestSessionExpiresAndRejectsLateResponses(t *testing.T) {
	e := newTestEnv(t, func(o *Options) {
		o.SessionTTL = 50 * time.Millisecond
		o.GuardInterval = 5 * time.Millisecond
	})
	id, _ := e.createParticipant(t, 1280)
	base := fmt.Sprintf("/api/participants/%s", id)

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := e.do(t, http.MethodGet, base, nil)
		var res struct {
			Participant models.Participant `json:"participant"`
		}
		decodeInto(t, rec, &res)
		if res.Participant.Status == models.StatusExpired {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never expired, status %s", res.Participant.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec := e.do(t, http.MethodPost, base+"/responses/dilemma", map[string]any{
		"dilemma_id": "dil1", "response_value": 3,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after expiry, got %d %s", rec.Code, rec.Body.String())
	}

	e.rt.outbox.Flush()
	ps, _ := e.store.ListParticipants()
	if len(ps) != 1 || ps[0].Status != models.StatusExpired {
		t.Fatalf("expected persisted expired participant, got %+v", ps)
	}
}

func TestAgeValidation(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createParticipant(t, 1280)
	base := fmt.Sprintf("/api/participants/%s", id)

	for _, age := range []int{17, 121, 0} {
		rec := e.do(t, http.MethodPost, base+"/sociodemographic", map[string]any{"age": age})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("age %d: expected 400, got %d", age, rec.Code)
		}
	}
}
