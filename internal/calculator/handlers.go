package calculator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/history"
	"go-chi-calculator/internal/observability"
)

// Handler exposes a Calculator over HTTP. The Calculator is single-threaded,
// so every request holds mu for its whole duration.
type Handler struct {
	mu   sync.Mutex
	calc *Calculator
}

// NewHandler returns a Handler serving calc.
func NewHandler(calc *Calculator) *Handler {
	return &Handler{calc: calc}
}

// Compute handles POST /calculator/{operation}.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	span := trace.SpanFromContext(ctx)
	opName := chi.URLParam(r, "operation")

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, httpErrors, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	h.mu.Lock()
	res, err := h.calc.Compute(ctx, opName, string(req.A), string(req.B))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, opName, err)
		return
	}

	span.SetAttributes(attribute.String("calculator.operation", res.Calculation.Operator))
	handlers.WriteJSON(w, http.StatusOK, newCalcResponse(res))
}

// Chain handles POST /calculator/chain. Every step is recorded in history;
// a failing step stops the chain and leaves earlier steps recorded.
func (h *Handler) Chain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	span := trace.SpanFromContext(ctx)

	var req ChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, httpErrors, "chain", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	initial := string(req.Initial)
	if strings.TrimSpace(initial) == "" {
		initial = decimal.Zero.String()
	}

	steps := make([]Step, len(req.Steps))
	for i, s := range req.Steps {
		steps[i] = Step{Operation: s.Op, Value: string(s.Value)}
	}

	h.mu.Lock()
	results, err := h.calc.Chain(ctx, initial, steps)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, "chain", err)
		return
	}

	resp := ChainResponse{
		Initial: initial,
		Steps:   make([]ChainResult, 0, len(results)),
	}
	for _, res := range results {
		c := res.Calculation
		resp.Steps = append(resp.Steps, ChainResult{Op: c.Operator, Value: c.OperandB, Result: c.Result})
		resp.Result = c.Result
	}

	logger.Info("chained calculation completed",
		zap.String("initial", initial),
		zap.Int("steps", len(results)),
		zap.Stringer("result", resp.Result),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// Operations handles GET /calculator/operations.
func (h *Handler) Operations(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	ops := h.calc.Operations()
	precision := h.calc.Precision()
	h.mu.Unlock()

	resp := OperationsResponse{Precision: precision, Operations: make([]OperationInfo, 0, len(ops))}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, OperationInfo{
			Name:        op.Name,
			Symbol:      op.Symbol,
			Description: op.Description,
		})
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /calculator/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := HistoryResponse{
		Count:     h.calc.Len(),
		UndoDepth: h.calc.UndoDepth(),
		RedoDepth: h.calc.RedoDepth(),
	}
	for c := range h.calc.History() {
		resp.Entries = append(resp.Entries, c)
	}
	h.mu.Unlock()

	if resp.Entries == nil {
		resp.Entries = []history.Calculation{}
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// Clear handles DELETE /calculator/history.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "clear", func() (string, error) {
		return "", h.calc.Clear(r.Context())
	})
}

// Undo handles POST /calculator/history/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "undo", func() (string, error) {
		snap, err := h.calc.Undo(r.Context())
		return snap.Kind.String(), err
	})
}

// Redo handles POST /calculator/history/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "redo", func() (string, error) {
		snap, err := h.calc.Redo(r.Context())
		return snap.Kind.String(), err
	})
}

// Save handles POST /calculator/history/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "save", func() (string, error) {
		return "", h.calc.Save(r.Context())
	})
}

// Load handles POST /calculator/history/load.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "load", func() (string, error) {
		return "", h.calc.Load(r.Context())
	})
}

// action runs fn under the lock and answers with the resulting history
// size.
func (h *Handler) action(w http.ResponseWriter, r *http.Request, name string, fn func() (string, error)) {
	h.mu.Lock()
	kind, err := fn()
	entries := h.calc.Len()
	h.mu.Unlock()

	if err != nil {
		h.writeError(w, r, name, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, ActionResponse{Action: name, Kind: kind, Entries: entries})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	ctx := r.Context()
	status := StatusFor(KindOf(err))

	msg := err.Error()
	if status >= http.StatusInternalServerError && !errors.Is(err, history.ErrPersistence) {
		msg = "internal error"
	}
	observability.RecordError(ctx, trace.SpanFromContext(ctx), observability.LoggerWithTrace(ctx), httpErrors, opName, msg, err, status, w)
}

// StatusFor maps an error kind to the HTTP status returned for it.
func StatusFor(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindOutOfRange, KindDomain:
		return http.StatusBadRequest
	case KindUnknownOperation:
		return http.StatusNotFound
	case KindNothingToUndo, KindNothingToRedo:
		return http.StatusConflict
	case KindCorruptHistory:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
