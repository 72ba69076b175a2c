package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/smarteducator/aidetector/internal/config"
	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/core/ports"
	"github.com/smarteducator/aidetector/internal/observability/metrics"
)

const (
	teacherIDHeader     = "X-Teacher-Id"
	multipartMemoryMB   = 32
	serviceName         = "api"
	defaultMaxUploadMB  = 50
	filesFormField      = "files"
	legacyFileFormField = "file"
)

type Router struct {
	cfg     config.Config
	ingest  ports.BatchIngestor
	reader  ports.BatchReader
	metrics *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithHTTPMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(cfg config.Config, ingest ports.BatchIngestor, reader ports.BatchReader, opts ...RouterOption) *Router {
	rt := &Router{
		cfg:    cfg,
		ingest: ingest,
		reader: reader,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/batches", rt.submitBatch)
	api.HandleFunc("/v1/batches/", rt.getBatchStatus)
	api.HandleFunc("/v1/documents/", rt.getDocumentByID)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/", limited)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemoryMB << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File[filesFormField]...)
	headers = append(headers, r.MultipartForm.File[legacyFileFormField]...)
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	priority, err := domain.ParseBatchPriority(r.FormValue("priority"))
	if err != nil {
		writeError(w, err)
		return
	}

	files := make([]ports.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("open %q: %v", header.Filename, err)})
			return
		}
		defer closeQuietly(file)
		files = append(files, ports.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
	}

	batch, err := rt.ingest.Submit(r.Context(), ports.SubmitBatchInput{
		TeacherID:    r.Header.Get(teacherIDHeader),
		Priority:     priority,
		StudentID:    r.FormValue("student_id"),
		AssignmentID: r.FormValue("assignment_id"),
		Files:        files,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordBatchSubmitted(serviceName, string(batch.Priority))
	}
	writeJSON(w, http.StatusAccepted, batch)
}

func (rt *Router) getBatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch id is required"})
		return
	}

	report, err := rt.reader.GetBatchStatus(r.Context(), r.Header.Get(teacherIDHeader), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetDocument(r.Context(), r.Header.Get(teacherIDHeader), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) maxUploadBytes() int64 {
	mb := rt.cfg.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}
