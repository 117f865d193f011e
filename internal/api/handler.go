package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/event-tables/internal/calculator"
	"github.com/eugenenazirov/event-tables/internal/grading"
	"github.com/eugenenazirov/event-tables/internal/history"
	"github.com/eugenenazirov/event-tables/internal/planner"
	"github.com/eugenenazirov/event-tables/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	maxBatchEvents      = 100
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxGradeCases       = 100
	maxGradeBodyBytes   = 1 << 20
)

// Handler wires calculator, storage and history dependencies into HTTP handlers.
type Handler struct {
	calculator calculator.Calculator
	storage    storage.Storage
	history    history.Store
	logger     *zap.Logger
	policy     calculator.GuestPolicy

	clock func() time.Time

	mu                sync.RWMutex
	capacityUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for failures that do not reach the client.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithGuestPolicy sets the policy applied when a request does not name one.
func WithGuestPolicy(policy calculator.GuestPolicy) HandlerOption {
	return func(h *Handler) {
		h.policy = policy
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(calc calculator.Calculator, store storage.Storage, hist history.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		calculator: calc,
		storage:    store,
		history:    hist,
		logger:     zap.NewNop(),
		policy:     calculator.PolicyPerInvitee,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.capacityUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTableCapacity(w http.ResponseWriter, r *http.Request) {
	_ = r
	capacity, err := h.storage.GetTableCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := tableCapacityResponse{
		TableCapacity: capacity,
		UpdatedAt:     h.currentCapacityUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutTableCapacity(w http.ResponseWriter, r *http.Request) {
	var req tableCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.TableCapacity == nil {
		writeError(w, http.StatusBadRequest, "Invalid table capacity", "tableCapacity is required")
		return
	}

	if err := h.storage.SetTableCapacity(*req.TableCapacity); err != nil {
		if errors.Is(err, storage.ErrInvalidTableCapacity) {
			writeError(w, http.StatusBadRequest, "Invalid table capacity", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCapacityUpdated()

	capacity, err := h.storage.GetTableCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := tableCapacityResponse{
		TableCapacity: capacity,
		UpdatedAt:     h.currentCapacityUpdatedAt(),
		Message:       "Table capacity updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	capacity, err := h.storage.GetTableCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	start := time.Now()
	plan, calcErr := h.calculator.CalculateTables(h.toCalculatorRequest(req, capacity))
	elapsed := time.Since(start)

	if calcErr != nil {
		writeCalculationError(w, calcErr)
		return
	}

	rec := history.NewRecord(plan, requestIDFromContext(r.Context()), h.clock())
	if err := h.history.Save(r.Context(), rec); err != nil {
		h.logger.Error("record calculation failed", zap.Error(err), zap.String("request_id", rec.RequestID))
		writeInternalError(w, fmt.Errorf("record calculation: %w", err))
		return
	}

	resp := calculateResponse{
		ID:                rec.ID,
		planResponse:      newPlanResponse(plan),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCalculateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Events) == 0 || len(req.Events) > maxBatchEvents {
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("events must contain between 1 and %d entries", maxBatchEvents))
		return
	}

	capacity, err := h.storage.GetTableCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	requestID := requestIDFromContext(r.Context())
	now := h.clock()
	results := make([]batchResult, len(req.Events))
	records := make([]history.Record, 0, len(req.Events))
	totalTables := 0

	for i, event := range req.Events {
		results[i].Index = i
		plan, calcErr := h.calculator.CalculateTables(h.toCalculatorRequest(event, capacity))
		if calcErr != nil {
			results[i].Error = calcErr.Error()
			continue
		}
		rec := history.NewRecord(plan, requestID, now)
		records = append(records, rec)
		pr := newPlanResponse(plan)
		results[i].ID = rec.ID
		results[i].Plan = &pr
		totalTables += plan.Tables
	}

	if err := h.history.SaveAll(r.Context(), records); err != nil {
		h.logger.Error("record batch calculations failed", zap.Error(err), zap.String("request_id", requestID))
		writeInternalError(w, fmt.Errorf("record calculations: %w", err))
		return
	}

	resp := batchResponse{
		Results:     results,
		Succeeded:   len(records),
		Failed:      len(req.Events) - len(records),
		TotalTables: totalTables,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 || value > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("limit must be an integer between 1 and %d", maxHistoryLimit))
			return
		}
		limit = value
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := calculationsResponse{Calculations: make([]calculationResponse, 0, len(records))}
	for _, rec := range records {
		resp.Calculations = append(resp.Calculations, newCalculationResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCalculationResponse(rec))
}

// handleGrade scores submitted transcripts against the planner running with
// the current table capacity and the service's default guest policy.
func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	suite, err := grading.DecodeSuite(http.MaxBytesReader(w, r.Body, maxGradeBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grading suite", err.Error())
		return
	}
	if len(suite.Tests) > maxGradeCases {
		writeError(w, http.StatusBadRequest, "Invalid grading suite", fmt.Sprintf("tests must contain between 1 and %d entries", maxGradeCases))
		return
	}

	capacity, err := h.storage.GetTableCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	opts := planner.Options{Capacity: capacity, Policy: string(h.policy)}
	grader, err := grading.New(suite.Settings, func(input string) (string, error) {
		return planner.Transcript(input, opts)
	}, grading.WithLogger(h.logger))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grading suite", err.Error())
		return
	}

	report, err := grader.Grade(r.Context(), suite.Tests)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) toCalculatorRequest(req calculateRequest, capacity int) calculator.Request {
	policy := calculator.GuestPolicy(req.Policy)
	if req.Policy == "" {
		policy = h.policy
	}
	return calculator.Request{
		Invitees:         req.Invitees,
		GuestsPerInvitee: req.GuestsPerInvitee,
		Capacity:         capacity,
		Policy:           policy,
	}
}

func (h *Handler) currentCapacityUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capacityUpdatedAt
}

func (h *Handler) markCapacityUpdated() {
	h.mu.Lock()
	h.capacityUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type tableCapacityRequest struct {
	TableCapacity *int `json:"tableCapacity"`
}

type calculateRequest struct {
	Invitees         int    `json:"invitees"`
	GuestsPerInvitee int    `json:"guestsPerInvitee"`
	Policy           string `json:"policy,omitempty"`
}

type batchRequest struct {
	Events []calculateRequest `json:"events"`
}

type planResponse struct {
	Invitees         int    `json:"invitees"`
	GuestsPerInvitee int    `json:"guestsPerInvitee"`
	Policy           string `json:"policy"`
	TableCapacity    int    `json:"tableCapacity"`
	Attendees        int    `json:"attendees"`
	Tables           int    `json:"tables"`
	EmptySeats       int    `json:"emptySeats"`
}

func newPlanResponse(plan calculator.Plan) planResponse {
	return planResponse{
		Invitees:         plan.Invitees,
		GuestsPerInvitee: plan.GuestsPerInvitee,
		Policy:           string(plan.Policy),
		TableCapacity:    plan.Capacity,
		Attendees:        plan.Attendees,
		Tables:           plan.Tables,
		EmptySeats:       plan.EmptySeats,
	}
}

type calculateResponse struct {
	ID string `json:"id"`
	planResponse
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type batchResult struct {
	Index int           `json:"index"`
	ID    string        `json:"id,omitempty"`
	Plan  *planResponse `json:"plan,omitempty"`
	Error string        `json:"error,omitempty"`
}

type batchResponse struct {
	Results     []batchResult `json:"results"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	TotalTables int           `json:"totalTables"`
}

type calculationResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"requestId,omitempty"`
	planResponse
	CreatedAt time.Time `json:"createdAt"`
}

func newCalculationResponse(rec history.Record) calculationResponse {
	return calculationResponse{
		ID:           rec.ID,
		RequestID:    rec.RequestID,
		planResponse: newPlanResponse(rec.Plan),
		CreatedAt:    rec.CreatedAt,
	}
}

type calculationsResponse struct {
	Calculations []calculationResponse `json:"calculations"`
}

type tableCapacityResponse struct {
	TableCapacity int       `json:"tableCapacity"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Message       string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeCalculationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calculator.ErrInvalidInvitees),
		errors.Is(err, calculator.ErrInvalidGuests),
		errors.Is(err, calculator.ErrInvalidPolicy):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, calculator.ErrOverflow):
		writeError(w, http.StatusUnprocessableEntity, "Cannot seat event", err.Error(),
			"Reduce the number of invitees or guests per invitee")
	case errors.Is(err, calculator.ErrInvalidCapacity):
		writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
