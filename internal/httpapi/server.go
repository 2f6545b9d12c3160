// Package httpapi exposes the import pipeline and the retrieval engine over
// a small JSON API: upload-and-run imports, run history with report
// download, and dynamic multi-criteria search.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"cadimport/internal/filter"
	"cadimport/internal/importer"
	"cadimport/internal/mapping"
	"cadimport/internal/schema"
	"cadimport/internal/storage/postgres"
)

// maxUploadBytes caps one multipart import upload.
const maxUploadBytes = 64 << 20

// Importer runs one import end to end.
type Importer interface {
	Run(ctx context.Context, filename, targetName string, src io.Reader, m mapping.Mapping) (*importer.Reconciled, error)
}

// Runs reads the import audit trail.
type Runs interface {
	History(ctx context.Context) ([]postgres.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (postgres.Run, error)
}

// Searcher executes a compiled filter query.
type Searcher interface {
	Search(ctx context.Context, q filter.Query) ([]postgres.Person, int64, error)
}

// Blobs opens stored error reports.
type Blobs interface {
	Open(key string) (io.ReadCloser, error)
}

// Server holds the handler dependencies.
type Server struct {
	imp      Importer
	runs     Runs
	searcher Searcher
	blobs    Blobs
	log      *logrus.Entry
	pageSize int
}

// New wires a Server. pageSize caps one search result page.
func New(imp Importer, runs Runs, searcher Searcher, blobs Blobs, log *logrus.Entry, pageSize int) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Server{imp: imp, runs: runs, searcher: searcher, blobs: blobs, log: log, pageSize: pageSize}
}

// Router builds the chi router with CORS applied to the whole API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/targets", s.handleTargets)
		r.Post("/imports", s.handleImport)
		r.Get("/imports", s.handleHistory)
		r.Get("/imports/{id}/report", s.handleReport)
		r.Post("/search", s.handleSearch)
	})
	return r
}

// handleTargets lists the import targets and their canonical fields, for a
// column-mapping UI.
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	type fieldOut struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	out := make(map[string][]fieldOut)
	for _, name := range schema.TargetNames() {
		t, err := schema.LookupTarget(name)
		if err != nil {
			continue
		}
		fs := make([]fieldOut, 0, len(t.Fields))
		for _, f := range t.Fields {
			fs = append(fs, fieldOut{Name: f.Name, Kind: f.Kind.String()})
		}
		out[name] = fs
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleImport accepts a multipart form: "file" (the upload), "target" (an
// import target name) and "mapping" (a JSON object of source label to
// canonical field name). The import runs synchronously; the response is the
// finished run accounting.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	target := r.FormValue("target")
	var m mapping.Mapping
	if err := json.Unmarshal([]byte(r.FormValue("mapping")), &m); err != nil {
		s.writeError(w, http.StatusBadRequest, "mapping must be a JSON object of column to field")
		return
	}

	out, err := s.imp.Run(r.Context(), header.Filename, target, file, m)
	if err != nil {
		// Operator mistakes (unknown target, bad mapping, unreadable
		// format) carry their message back; anything else stays opaque.
		var uerr *importer.UsageError
		if errors.As(err, &uerr) {
			s.writeError(w, http.StatusUnprocessableEntity, uerr.Error())
			return
		}
		s.log.WithError(err).WithField("arquivo", header.Filename).Error("import failed")
		s.writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run_id":       out.RunID,
		"criados":      out.Criados,
		"enriquecidos": out.Enriquecidos,
		"rejeitados":   out.Rejeitados,
		"report_key":   out.ReportKey,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.History(r.Context())
	if err != nil {
		s.log.WithError(err).Error("run history")
		s.writeError(w, http.StatusInternalServerError, "run history unavailable")
		return
	}
	if runs == nil {
		runs = []postgres.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// handleReport streams the row-level error report of one run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed run id")
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, postgres.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("load run")
		s.writeError(w, http.StatusInternalServerError, "run unavailable")
		return
	}
	if run.ReportKey == nil {
		s.writeError(w, http.StatusNotFound, "run has no error report")
		return
	}

	rc, err := s.blobs.Open(*run.ReportKey)
	if err != nil {
		s.log.WithError(err).WithField("key", *run.ReportKey).Error("open report blob")
		s.writeError(w, http.StatusInternalServerError, "report unavailable")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.txt"`)
	_, _ = io.Copy(w, rc)
}

type searchRequest struct {
	Criteria []filter.Criterion `json:"criteria"`
	Page     int                `json:"page"`
}

// handleSearch compiles the submitted criteria and returns one result page
// plus the total match count.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed search request")
		return
	}

	q, err := filter.Compile(req.Criteria, req.Page, s.pageSize)
	if err != nil {
		var verr *filter.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, total, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.log.WithError(err).Error("search")
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if rows == nil {
		rows = []postgres.Person{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"total": total,
		"page":  req.Page,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
