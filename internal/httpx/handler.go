package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orderflow/internal/httpx/middlewares"
	"orderflow/internal/sagalog"
	"orderflow/internal/store"
)

// maxSignalBytes bounds the informational signal payload the gateway will
// buffer for a workflow instance.
const maxSignalBytes = 64 << 10

// Handler serves the order API: starting sagas, querying their live
// progress, and reading the durable log.
type Handler struct {
	runner *Runner
	store  store.Store
	logs   sagalog.Reader // nil-safe: the log endpoint 404s if nil
}

// NewHandler wires the handler with the runner, the record store, and an
// optional saga log reader.
func NewHandler(runner *Runner, st store.Store, logs sagalog.Reader) *Handler {
	return &Handler{
		runner: runner,
		store:  st,
		logs:   logs,
	}
}

// StartOrder submits an item and spawns its saga. The item is not validated
// against inventory here; an unknown item surfaces once reservation fails.
func (h *Handler) StartOrder(w http.ResponseWriter, r *http.Request) {
	var req startOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	item := strings.TrimSpace(req.Item)
	if item == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "item is required")
		return
	}

	id, _ := h.runner.Start(r.Context(), item)

	slog.InfoContext(r.Context(), "order submitted",
		"request_id", middlewares.RequestID(r.Context()), "saga_id", id, "item", item)

	writeJSON(w, http.StatusAccepted, startOrderResponse{OrderID: id})
}

// GetOrder returns the live progress state of a workflow instance.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inst.Progress())
}

// GetOrderLog returns the durable transition log for a workflow instance.
func (h *Handler) GetOrderLog(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		writeError(w, http.StatusNotFound, "log_unavailable", "saga log is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	entries, err := h.logs.ListBySaga(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "log_read_error", err.Error())
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}

	out := make([]logEntryResponse, len(entries))
	for i, e := range entries {
		errs := e.ErrorMessages
		if errs == "[]" {
			errs = ""
		}
		out[i] = logEntryResponse{
			Status:    string(e.Status),
			Stage:     e.Stage,
			Errors:    errs,
			TraceID:   e.TraceID,
			UpdatedAt: e.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// SignalOrder accepts an informational payload for a workflow instance. The
// payload is stored on the instance; the saga's behavior does not change.
func (h *Handler) SignalOrder(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}
	if !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "invalid_json", "signal payload must be JSON")
		return
	}

	inst.Signal(payload)
	w.WriteHeader(http.StatusNoContent)
}

// GetInventory returns the full inventory map, used to populate item
// selectors.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) instance(w http.ResponseWriter, r *http.Request) (*Instance, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return nil, false
	}
	inst, ok := h.runner.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return nil, false
	}
	return inst, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:   code,
		Message: msg,
	})
}
