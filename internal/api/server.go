// Package api serves the client registry REST endpoints the CRM posts to.
package api

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/db"
	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/middleware"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handlers serves the registry endpoints over the clients table.
type Handlers struct {
	clients *db.Clients
	logger  *zap.Logger
}

// NewHandler builds the registry route table.
func NewHandler(database *sql.DB, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{clients: db.NewClients(database), logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /clients/{$}", h.HandleCreate)
	mux.HandleFunc("GET /clients/{$}", h.HandleList)
	mux.HandleFunc("GET /clients/{id}", h.HandleGet)
	mux.HandleFunc("PATCH /clients/{id}/stage", h.HandleStage)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain("registry", logger, mux)
}

// NewServer creates the registry HTTP server.
func NewServer(database *sql.DB, logger *zap.Logger, bind string, port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: NewHandler(database, logger),
	}
}

// HandleCreate handles POST /clients/.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload crm.Payload
	if err := decodeBody(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.clients.CreateClient(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.RecordClientCreated("registry")
	h.logger.Info("client created",
		zap.String("id", rec.ID),
		zap.String("company", rec.CompanyName),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeJSON(w, http.StatusCreated, rec)
}

// HandleList handles GET /clients/.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := db.List(r.Context(), h.clients.DB())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

// HandleGet handles GET /clients/{id}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := db.GetByID(r.Context(), h.clients.DB(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type stageRequest struct {
	Stage string `json:"stage"`
}

// HandleStage handles PATCH /clients/{id}/stage.
func (h *Handlers) HandleStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	stage, ok := crm.ParseStage(req.Stage)
	if !ok {
		writeError(w, errors.NewInvalidRequest("stage must be one of: Lead, Contacted, Proposal sent, Closed"))
		return
	}

	id := r.PathValue("id")
	if err := db.UpdateStage(r.Context(), h.clients.DB(), id, stage); err != nil {
		writeError(w, err)
		return
	}
	rec, err := db.GetByID(r.Context(), h.clients.DB(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders {"error": {code, message, status[, details]}}.
func writeError(w http.ResponseWriter, err error) {
	var fErr *errors.FunnelError
	if !stderrors.As(err, &fErr) {
		fErr = errors.NewInternal(err)
	}
	body := map[string]any{
		"code":    string(fErr.Code),
		"message": fErr.Message,
		"status":  fErr.Status,
	}
	if len(fErr.Details) > 0 {
		body["details"] = fErr.Details
	}
	writeJSON(w, fErr.Status, map[string]any{"error": body})
}
