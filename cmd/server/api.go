package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-tos/internal/assign"
	"github.com/p-n-ai/pai-tos/internal/authoring"
	"github.com/p-n-ai/pai-tos/internal/exam"
	"github.com/p-n-ai/pai-tos/internal/export"
	"github.com/p-n-ai/pai-tos/internal/platform/config"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tos"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
	maxVersions    = 26
)

// check is a named readiness probe.
type check struct {
	name string
	fn   func(context.Context) error
}

// server holds the HTTP handlers' dependencies.
type server struct {
	service  *authoring.Service
	exams    *exam.Loader
	defaults config.GenerationConfig
	checks   []check
}

// newMux creates the HTTP router with health and blueprint endpoints.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /v1/blueprints", s.handleCreateBlueprint)
	mux.HandleFunc("POST /v1/blueprints/import", s.handleImportBlueprint)
	mux.HandleFunc("GET /v1/blueprints", s.handleListBlueprints)
	mux.HandleFunc("GET /v1/blueprints/{id}", s.handleGetBlueprint)
	mux.HandleFunc("DELETE /v1/blueprints/{id}", s.handleDeleteBlueprint)
	mux.HandleFunc("GET /v1/blueprints/{id}/tos.xlsx", s.handleExportBlueprint)
	mux.HandleFunc("GET /v1/blueprints/{id}/stats", s.handleBlueprintStats)

	mux.HandleFunc("POST /v1/blueprints/{id}/questions", s.handleDraftSheet)
	mux.HandleFunc("PUT /v1/blueprints/{id}/questions/{number}", s.handleUpdateQuestion)
	mux.HandleFunc("DELETE /v1/blueprints/{id}/questions/{number}", s.handleDeleteQuestion)
	mux.HandleFunc("POST /v1/blueprints/{id}/questions/{number}/regenerate", s.handleRegenerateQuestion)
	mux.HandleFunc("GET /v1/blueprints/{id}/versions", s.handleVersions)

	mux.HandleFunc("GET /v1/question-types/defaults", handleTypeDefaults)
	mux.HandleFunc("GET /v1/exams", s.handleListExams)
	mux.HandleFunc("POST /v1/exams/{id}/blueprints", s.handleGenerateFromExam)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range s.checks {
		if err := c.fn(ctx); err != nil {
			failed[c.name] = err.Error()
		}
	}
	if len(failed) > 0 {
		slog.Warn("readiness check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleCreateBlueprint(w http.ResponseWriter, r *http.Request) {
	in := authoring.Input{Shuffle: s.defaults.Shuffle}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.generate(w, r, in)
}

// importConfig is the JSON "config" part of a TOS workbook upload.
type importConfig struct {
	Title        string             `json:"title"`
	AuthorID     string             `json:"author_id,omitempty"`
	Distribution qtype.Distribution `json:"question_types"`
	Shuffle      bool               `json:"shuffle,omitempty"`
	Seed         *uint64            `json:"seed,omitempty"`
}

// handleImportBlueprint builds a blueprint from an uploaded TOS workbook. The
// multipart form carries the xlsx in "tos" and an importConfig in "config".
func (s *server) handleImportBlueprint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}

	raw := r.FormValue("config")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, errors.New(`missing "config" field`))
		return
	}
	cfg := importConfig{Shuffle: s.defaults.Shuffle}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid config: %w", err))
		return
	}

	file, _, err := r.FormFile("tos")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf(`missing "tos" file: %w`, err))
		return
	}
	defer file.Close()

	im, err := export.ReadTOS(file)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("reading TOS workbook: %w", err))
		return
	}

	b, err := s.service.Import(r.Context(), authoring.TableInput{
		Title:        cfg.Title,
		AuthorID:     cfg.AuthorID,
		Outcomes:     im.Outcomes,
		Matrix:       im.Matrix,
		Distribution: cfg.Distribution,
		Shuffle:      cfg.Shuffle,
		Seed:         cfg.Seed,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/blueprints/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (s *server) handleGenerateFromExam(w http.ResponseWriter, r *http.Request) {
	if s.exams == nil {
		writeError(w, http.StatusNotFound, errors.New("no exam definitions loaded"))
		return
	}
	def, ok := s.exams.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("exam %q not found", r.PathValue("id")))
		return
	}
	in, err := def.ToInput()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.generate(w, r, in)
}

func (s *server) generate(w http.ResponseWriter, r *http.Request, in authoring.Input) {
	b, err := s.service.Generate(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/blueprints/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (s *server) handleListExams(w http.ResponseWriter, r *http.Request) {
	type examListing struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Subject    string `json:"subject,omitempty"`
		TotalItems int    `json:"total_items"`
	}
	out := []examListing{}
	if s.exams != nil {
		for _, d := range s.exams.All() {
			out = append(out, examListing{ID: d.ID, Title: d.Title, Subject: d.Subject, TotalItems: d.TotalItems})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": out})
}

func (s *server) handleListBlueprints(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.List(r.Context(), r.URL.Query().Get("author_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blueprints": list})
}

func (s *server) handleGetBlueprint(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *server) handleDeleteBlueprint(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExportBlueprint(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTOS(&buf, b); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tos-%s.xlsx"`, b.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleBlueprintStats(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := map[string]any{
		"tos":      tos.ComputeStats(b.Input.Outcomes, b.Table.Matrix),
		"weighted": assign.Rebuild(b.Slots),
		"summary":  b.Summary,
	}
	if b.Sheet != nil {
		out["questions"] = tqs.ComputeStatistics(b.Sheet.Questions)
		out["problems"] = tqs.ValidateSheet(b.Sheet.Questions)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTypeDefaults returns the starter question-type templates.
func handleTypeDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"question_types": qtype.Defaults()})
}

func (s *server) handleDraftSheet(w http.ResponseWriter, r *http.Request) {
	b, report, err := s.service.DraftSheet(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sheet":    b.Sheet,
		"report":   report,
		"problems": tqs.ValidateSheet(b.Sheet.Questions),
	})
}

func (s *server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	var e tqs.Edit
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q, err := s.service.UpdateQuestion(r.Context(), r.PathValue("id"), index, e)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleRegenerateQuestion(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	q, err := s.service.RegenerateQuestion(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteQuestion(r.Context(), r.PathValue("id"), index); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := 2
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxVersions {
			writeError(w, http.StatusBadRequest, fmt.Errorf("count must be between 1 and %d", maxVersions))
			return
		}
		count = n
	}
	var seed uint64
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid seed %q", v))
			return
		}
		seed = n
	}

	versions, err := s.service.Versions(r.Context(), r.PathValue("id"), count, seed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seed": seed, "versions": versions})
}

// questionIndex converts the 1-based question number in the path to a sheet
// index.
func questionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid question number %q", r.PathValue("number")))
		return 0, false
	}
	return n - 1, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var cfgErr *authoring.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "invalid configuration",
			"problems": cfgErr.Problems,
		})
	case errors.Is(err, authoring.ErrNotFound), errors.Is(err, tqs.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, authoring.ErrNoSheet):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, authoring.ErrNoGenerator):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, tqs.ErrBudgetExceeded):
		writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
