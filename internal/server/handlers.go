package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/export"
)

const defaultUploadName = "upload"

// GET /healthz
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) error {
	if r.health != nil {
		if err := r.health.HealthCheck(req.Context(), 2*time.Second); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return nil
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

// POST /v1/analyze
// Body: multipart form with a "file" part, or the raw document with its
// Content-Type. Raw uploads name the document with ?name= or X-Document-Name.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if req.ContentLength > r.maxUpload {
		return &http.MaxBytesError{Limit: r.maxUpload}
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	in, err := r.readDocument(req)
	if err != nil {
		return err
	}
	ctx := common.WithDocumentName(req.Context(), in.Name)
	report, err := r.reports.Analyze(ctx, in)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/v1/reports/"+report.ID.String())
	writeJSON(w, http.StatusCreated, report)
	return nil
}

func (r *Router) readDocument(req *http.Request) (entity.DocumentInput, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := req.ParseMultipartForm(8 << 20); err != nil {
			return entity.DocumentInput{}, badRequest("parse multipart form", err)
		}
		file, hdr, err := req.FormFile("file")
		if err != nil {
			return entity.DocumentInput{}, badRequest(`multipart field "file" is required`, err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return entity.DocumentInput{}, err
		}
		return entity.DocumentInput{
			Name:     documentName(hdr.Filename),
			Data:     data,
			MIMEType: hdr.Header.Get("Content-Type"),
		}, nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return entity.DocumentInput{}, err
	}
	name := req.URL.Query().Get("name")
	if name == "" {
		name = req.Header.Get("X-Document-Name")
	}
	return entity.DocumentInput{
		Name:     documentName(name),
		Data:     data,
		MIMEType: mediaType,
	}, nil
}

func documentName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}
	return name
}

// POST /v1/jurisdiction
// Body: {"text": "..."} or text/plain.
func (r *Router) handleJurisdiction(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))

	var text string
	if mediaType == "application/json" {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest("decode body", err)
		}
		text = body.Text
	} else {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return common.NewAppError("EMPTY_TEXT", "text is required", common.ErrInvalidInput)
	}
	writeJSON(w, http.StatusOK, r.detector.Detect(text))
	return nil
}

// GET /v1/reports?limit=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	limit, err := parseLimit(req.URL.Query().Get("limit"))
	if err != nil {
		return err
	}
	list, err := r.reports.List(req.Context(), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list})
	return nil
}

// GET /v1/reports/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	report, err := r.reports.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

// GET /v1/reports/{id}/export.xlsx
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	b, name, err := r.reports.ExportXLSX(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(b)
	return err
}

func badRequest(msg string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return common.NewAppError("BAD_REQUEST", msg, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
}

// parseLimit reads an optional non-negative limit. Empty means the service default.
func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	v := common.NewValidator().Check(err == nil, "limit", s, "must be an integer")
	if err == nil {
		v.Field("limit", n, common.NonNegative)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return 0, err
	}
	return n, nil
}
