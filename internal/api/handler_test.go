package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/event-tables/internal/calculator"
	"github.com/eugenenazirov/event-tables/internal/history"
	"github.com/eugenenazirov/event-tables/internal/planner"
	"github.com/eugenenazirov/event-tables/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingHistory struct {
	history.Store
}

func (failingHistory) Save(context.Context, history.Record) error {
	return errors.New("disk full")
}

func (failingHistory) SaveAll(context.Context, []history.Record) error {
	return errors.New("disk full")
}

func setupTestRouter(t *testing.T) (http.Handler, *controllableClock) {
	t.Helper()

	store := storage.NewMemoryStorage()
	calc := calculator.New()
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

	handler := NewHandler(calc, store, history.NewMemoryStore(32), WithClock(clock.Now))
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, WithLogging(false))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestGetTableCapacityReturnsDefault(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/table-capacity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		TableCapacity int       `json:"tableCapacity"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.TableCapacity != storage.DefaultTableCapacity() {
		t.Fatalf("expected capacity %d, got %d", storage.DefaultTableCapacity(), body.TableCapacity)
	}
	if !body.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), body.UpdatedAt)
	}
}

func TestPutTableCapacityUpdatesStorage(t *testing.T) {
	router, clock := setupTestRouter(t)

	clock.Advance(time.Hour)

	rec := doJSON(t, router, http.MethodPut, "/api/table-capacity", map[string]any{"tableCapacity": 8})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		TableCapacity int       `json:"tableCapacity"`
		UpdatedAt     time.Time `json:"updatedAt"`
		Message       string    `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Message == "" {
		t.Fatalf("expected success message, got empty string")
	}
	if body.TableCapacity != 8 {
		t.Fatalf("expected capacity 8, got %d", body.TableCapacity)
	}
	if !body.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), body.UpdatedAt)
	}

	calc := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": 9})
	var plan struct {
		TableCapacity int `json:"tableCapacity"`
		Tables        int `json:"tables"`
	}
	if err := json.NewDecoder(calc.Body).Decode(&plan); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if plan.TableCapacity != 8 || plan.Tables != 2 {
		t.Fatalf("expected 2 tables of 8, got %d tables of %d", plan.Tables, plan.TableCapacity)
	}
}

func TestPutTableCapacityValidatesInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	payloads := []map[string]any{
		{},
		{"tableCapacity": 0},
		{"tableCapacity": -1},
		{"tableCapacity": 101},
	}
	for _, payload := range payloads {
		rec := doJSON(t, router, http.MethodPut, "/api/table-capacity", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %v, got %d", payload, rec.Code)
		}
	}
}

func TestCalculateEndpointSuccess(t *testing.T) {
	router, clock := setupTestRouter(t)

	clock.Advance(time.Minute)

	rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{
		"invitees":         2,
		"guestsPerInvitee": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		ID               string `json:"id"`
		Invitees         int    `json:"invitees"`
		GuestsPerInvitee int    `json:"guestsPerInvitee"`
		Policy           string `json:"policy"`
		TableCapacity    int    `json:"tableCapacity"`
		Attendees        int    `json:"attendees"`
		Tables           int    `json:"tables"`
		EmptySeats       int    `json:"emptySeats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.ID == "" {
		t.Fatalf("expected calculation id")
	}
	if body.Invitees != 2 || body.GuestsPerInvitee != 3 {
		t.Fatalf("unexpected echo of inputs: %+v", body)
	}
	if body.Policy != string(calculator.PolicyPerInvitee) {
		t.Fatalf("expected default policy, got %s", body.Policy)
	}
	if body.Attendees != 8 {
		t.Fatalf("expected 8 attendees, got %d", body.Attendees)
	}
	if body.Tables != 2 {
		t.Fatalf("expected 2 tables, got %d", body.Tables)
	}
	if body.EmptySeats != 4 {
		t.Fatalf("expected 4 empty seats, got %d", body.EmptySeats)
	}
}

func TestCalculateEndpointZeroInvitees(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": 0, "guestsPerInvitee": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Tables int `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Tables != 0 {
		t.Fatalf("expected 0 tables, got %d", body.Tables)
	}
}

func TestCalculateEndpointRejectsInvalidInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	payloads := []map[string]any{
		{"invitees": -1},
		{"invitees": 3, "guestsPerInvitee": -2},
		{"invitees": 3, "policy": "flat"},
	}
	for _, payload := range payloads {
		rec := doJSON(t, router, http.MethodPost, "/api/tables", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %v, got %d", payload, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tables", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestCalculateEndpointOverflow(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{
		"invitees":         math.MaxInt64,
		"guestsPerInvitee": 1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body struct {
		Suggestion string `json:"suggestion"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Suggestion == "" {
		t.Fatalf("expected suggestion to be populated")
	}
}

func TestCalculateEndpointHistoryFailure(t *testing.T) {
	handler := NewHandler(calculator.New(), storage.NewMemoryStorage(), failingHistory{}, WithLogger(zaptest.NewLogger(t)))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": 4})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestGuestPolicyOption(t *testing.T) {
	handler := NewHandler(calculator.New(), storage.NewMemoryStorage(), history.NewMemoryStore(4),
		WithGuestPolicy(calculator.PolicyGuestsOnly))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": 2, "guestsPerInvitee": 3})
	var body struct {
		Policy    string `json:"policy"`
		Attendees int    `json:"attendees"`
		Tables    int    `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Policy != string(calculator.PolicyGuestsOnly) || body.Attendees != 6 || body.Tables != 1 {
		t.Fatalf("unexpected guests-only plan: %+v", body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": 2, "guestsPerInvitee": 3, "policy": "per-invitee"})
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Attendees != 8 || body.Tables != 2 {
		t.Fatalf("expected explicit policy to win, got %+v", body)
	}
}

func TestCalculateBatchEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tables/batch", map[string]any{
		"events": []map[string]any{
			{"invitees": 6},
			{"invitees": 7},
			{"invitees": -1},
			{"invitees": 2, "guestsPerInvitee": 3},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Results []struct {
			Index int    `json:"index"`
			ID    string `json:"id"`
			Plan  *struct {
				Tables int `json:"tables"`
			} `json:"plan"`
			Error string `json:"error"`
		} `json:"results"`
		Succeeded   int `json:"succeeded"`
		Failed      int `json:"failed"`
		TotalTables int `json:"totalTables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(body.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(body.Results))
	}
	if body.Succeeded != 3 || body.Failed != 1 {
		t.Fatalf("expected 3 succeeded and 1 failed, got %d and %d", body.Succeeded, body.Failed)
	}
	if body.TotalTables != 5 {
		t.Fatalf("expected 5 tables in total, got %d", body.TotalTables)
	}
	wantTables := []int{1, 2, -1, 2}
	for i, result := range body.Results {
		if result.Index != i {
			t.Fatalf("expected result %d to carry index %d, got %d", i, i, result.Index)
		}
		if wantTables[i] < 0 {
			if result.Error == "" || result.Plan != nil {
				t.Fatalf("expected result %d to be an error, got %+v", i, result)
			}
			continue
		}
		if result.Plan == nil || result.Plan.Tables != wantTables[i] || result.ID == "" {
			t.Fatalf("unexpected result %d: %+v", i, result)
		}
	}

	list := doJSON(t, router, http.MethodGet, "/api/calculations", nil)
	var listed struct {
		Calculations []json.RawMessage `json:"calculations"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Calculations) != 3 {
		t.Fatalf("expected 3 recorded calculations, got %d", len(listed.Calculations))
	}
}

func TestCalculateBatchEndpointListsEventsInOrder(t *testing.T) {
	router, _ := setupTestRouter(t)

	events := make([]map[string]any, 8)
	for i := range events {
		events[i] = map[string]any{"invitees": 6 * (i + 1)}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/tables/batch", map[string]any{"events": events})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	list := doJSON(t, router, http.MethodGet, "/api/calculations", nil)
	var listed struct {
		Calculations []struct {
			Invitees int `json:"invitees"`
		} `json:"calculations"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := []int{48, 42, 36, 30, 24, 18, 12, 6}
	if len(listed.Calculations) != len(want) {
		t.Fatalf("expected %d calculations, got %d", len(want), len(listed.Calculations))
	}
	for i, calc := range listed.Calculations {
		if calc.Invitees != want[i] {
			t.Fatalf("expected invitees %v newest first, got position %d = %d", want, i, calc.Invitees)
		}
	}
}

func TestCalculateBatchEndpointHistoryFailure(t *testing.T) {
	handler := NewHandler(calculator.New(), storage.NewMemoryStorage(), failingHistory{}, WithLogger(zaptest.NewLogger(t)))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodPost, "/api/tables/batch", map[string]any{
		"events": []map[string]any{{"invitees": 6}},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestCalculateBatchEndpointValidatesSize(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tables/batch", map[string]any{"events": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty batch, got %d", rec.Code)
	}

	events := make([]map[string]any, maxBatchEvents+1)
	for i := range events {
		events[i] = map[string]any{"invitees": 1}
	}
	rec = doJSON(t, router, http.MethodPost, "/api/tables/batch", map[string]any{"events": events})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for oversized batch, got %d", rec.Code)
	}
}

func TestCalculationsHistory(t *testing.T) {
	router, clock := setupTestRouter(t)

	var ids []string
	for _, invitees := range []int{6, 7, 13} {
		clock.Advance(time.Second)
		rec := doJSON(t, router, http.MethodPost, "/api/tables", map[string]any{"invitees": invitees})
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		ids = append(ids, body.ID)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/calculations?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var list struct {
		Calculations []struct {
			ID        string    `json:"id"`
			Invitees  int       `json:"invitees"`
			Tables    int       `json:"tables"`
			CreatedAt time.Time `json:"createdAt"`
		} `json:"calculations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Calculations) != 2 {
		t.Fatalf("expected 2 calculations, got %d", len(list.Calculations))
	}
	if list.Calculations[0].ID != ids[2] || list.Calculations[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %+v", list.Calculations)
	}
	if list.Calculations[0].Tables != 3 {
		t.Fatalf("expected 3 tables for 13 invitees, got %d", list.Calculations[0].Tables)
	}
	if !list.Calculations[0].CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected createdAt %s, got %s", clock.Now(), list.Calculations[0].CreatedAt)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/calculations/"+ids[0], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var single struct {
		ID       string `json:"id"`
		Invitees int    `json:"invitees"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&single); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if single.ID != ids[0] || single.Invitees != 6 {
		t.Fatalf("unexpected calculation: %+v", single)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/calculations/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	for _, bad := range []string{"0", "-3", "abc", "101"} {
		rec = doJSON(t, router, http.MethodGet, "/api/calculations?limit="+bad, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for limit %q, got %d", bad, rec.Code)
		}
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tables", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}

func TestRequestIDRecordedInHistory(t *testing.T) {
	router, _ := setupTestRouter(t)

	data, _ := json.Marshal(map[string]any{"invitees": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/tables", bytes.NewReader(data))
	req.Header.Set("X-Request-ID", "planner-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	got := doJSON(t, router, http.MethodGet, "/api/calculations/"+created.ID, nil)
	var body struct {
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(got.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.RequestID != "planner-42" {
		t.Fatalf("expected request id planner-42, got %q", body.RequestID)
	}
}

func plannerOutput(tables string) string {
	return planner.InviteesPrompt + planner.GuestsPrompt + tables + " tables will need to be set up for the event.\n"
}

func TestGradeEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/grade", map[string]any{
		"tests": []map[string]any{
			{"description": "exactly one table", "input": "6 0", "output": plannerOutput("1")},
			{"description": "one seat over", "input": "7 0", "output": plannerOutput("3")},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var report struct {
		Results []struct {
			Grade    float64  `json:"grade"`
			Passed   bool     `json:"passed"`
			Feedback []string `json:"feedback"`
		} `json:"results"`
		TestsPassed   int     `json:"testsPassed"`
		TestsTotal    int     `json:"testsTotal"`
		PassThreshold float64 `json:"passThreshold"`
		Passed        bool    `json:"passed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if report.TestsTotal != 2 || report.TestsPassed != 1 || report.Passed {
		t.Fatalf("unexpected summary: %+v", report)
	}
	if report.PassThreshold != 95 {
		t.Fatalf("expected default threshold 95, got %v", report.PassThreshold)
	}
	if !report.Results[0].Passed || report.Results[0].Grade != 100 {
		t.Fatalf("expected first case to pass with 100, got %+v", report.Results[0])
	}
	if report.Results[1].Passed || len(report.Results[1].Feedback) == 0 {
		t.Fatalf("expected second case to fail with feedback, got %+v", report.Results[1])
	}
}

func TestGradeEndpointUsesCurrentCapacity(t *testing.T) {
	router, _ := setupTestRouter(t)

	if rec := doJSON(t, router, http.MethodPut, "/api/table-capacity", map[string]any{"tableCapacity": 8}); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/grade", map[string]any{
		"tests": []map[string]any{{"input": "7 0", "output": plannerOutput("1")}},
	})
	var report struct {
		Passed bool `json:"passed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !report.Passed {
		t.Fatalf("expected 7 guests to fit one table of 8")
	}
}

func TestGradeEndpointRejectsInvalidSuites(t *testing.T) {
	router, _ := setupTestRouter(t)

	tooMany := make([]map[string]any, maxGradeCases+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"input": "1 1"}
	}

	payloads := []map[string]any{
		{"tests": []any{}},
		{"tests": tooMany},
		{"tests": []map[string]any{{"input": "1 1"}}, "settings": map[string]any{"passThreshold": 120}},
		{"tests": []map[string]any{{"input": "1 1"}}, "compiler": "javac"},
	}
	for _, payload := range payloads {
		rec := doJSON(t, router, http.MethodPost, "/api/grade", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	}
}
