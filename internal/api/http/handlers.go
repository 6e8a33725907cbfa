package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"bee-console/internal/dispatch"
	"bee-console/internal/imei"
	"bee-console/internal/observability/metrics"
	"bee-console/internal/report"
	"bee-console/internal/sheet"
	"bee-console/internal/status"
	"bee-console/internal/uploads"
)

const (
	maxUploadBytes  = 16 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Clock supplies export timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CommandDispatcher broadcasts one command to a list of identifiers.
type CommandDispatcher interface {
	Run(ctx context.Context, ids []string, command string) ([]dispatch.Result, error)
}

// StatusChecker reconciles delivery status for a list of identifiers.
type StatusChecker interface {
	Run(ctx context.Context, ids []string, req status.Request) ([]status.Result, status.Counters, error)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// UploadHandler accepts a spreadsheet, extracts and normalizes identifiers,
// stores them and binds the browser session to the stored upload.
type UploadHandler struct {
	sessions *Sessions
	logger   *log.Logger
	clock    Clock
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(sessions *Sessions, logger *log.Logger) (*UploadHandler, error) {
	if sessions == nil {
		return nil, errors.New("apihttp: nil sessions")
	}
	if logger == nil {
		return nil, errors.New("apihttp: nil logger")
	}
	return &UploadHandler{sessions: sessions, logger: logger, clock: systemClock{}}, nil
}

// ServeHTTP handles POST /api/upload.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	values, err := sheet.ParseIdentifiers(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, sheet.ErrUnsupportedType), errors.Is(err, sheet.ErrNoIMEIColumn), errors.Is(err, sheet.ErrBadFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Printf("upload: parsing %q: %v", header.Filename, err)
			writeError(w, http.StatusInternalServerError, "failed to read file")
		}
		return
	}

	ids, err := imei.NormalizeAll(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no valid IMEIs found in file")
		return
	}

	now := h.clock.Now()
	uploadID, err := h.sessions.store.Save(uploads.Record{
		IMEIList:   ids,
		Filename:   header.Filename,
		UploadTime: now,
	})
	if err != nil {
		h.logger.Printf("upload: storing %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := h.sessions.Issue(w, uploadID, now); err != nil {
		h.logger.Printf("upload: issuing session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	metrics.IncUpload()
	h.logger.Printf("upload: stored %d identifiers from %q", len(ids), header.Filename)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"imei_count": len(ids),
		"filename":   header.Filename,
	})
}

// SendCommandsHandler broadcasts a command to the session's identifiers and
// returns the per-device results as an XLSX attachment or JSON.
type SendCommandsHandler struct {
	sessions   *Sessions
	dispatcher CommandDispatcher
	logger     *log.Logger
	clock      Clock
}

// NewSendCommandsHandler constructs a SendCommandsHandler.
func NewSendCommandsHandler(sessions *Sessions, dispatcher CommandDispatcher, logger *log.Logger) (*SendCommandsHandler, error) {
	if sessions == nil {
		return nil, errors.New("apihttp: nil sessions")
	}
	if dispatcher == nil {
		return nil, errors.New("apihttp: nil dispatcher")
	}
	if logger == nil {
		return nil, errors.New("apihttp: nil logger")
	}
	return &SendCommandsHandler{sessions: sessions, dispatcher: dispatcher, logger: logger, clock: systemClock{}}, nil
}

// ServeHTTP handles POST /api/commands/send.
func (h *SendCommandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, record, err := h.sessions.Resolve(r)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			writeError(w, http.StatusBadRequest, "no IMEIs uploaded, upload a file first")
			return
		}
		h.logger.Printf("send: resolving session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}

	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, err := h.dispatcher.Run(r.Context(), record.IMEIList, body.Command)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrNoCommand):
			writeError(w, http.StatusBadRequest, "command is required")
		case errors.Is(err, dispatch.ErrNoIdentifiers):
			writeError(w, http.StatusBadRequest, "no IMEIs uploaded, upload a file first")
		default:
			h.logger.Printf("send: dispatch run: %v", err)
			writeError(w, http.StatusInternalServerError, "dispatch failed")
		}
		return
	}

	if r.URL.Query().Get("format") == "json" {
		metrics.IncReportExport("json", metrics.ResultSuccess)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	data, err := report.BuildCommandResultsXLSX(results)
	if err != nil {
		metrics.IncReportExport("xlsx", metrics.ResultError)
		h.logger.Printf("send: building workbook: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	metrics.IncReportExport("xlsx", metrics.ResultSuccess)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.CommandResultsFilename(h.clock.Now())+`"`)
	_, _ = w.Write(data)
}

// CommandStatusHandler reconciles delivery status over a window and returns
// the rows as an XLSX attachment, a PDF summary or JSON.
type CommandStatusHandler struct {
	sessions *Sessions
	checker  StatusChecker
	logger   *log.Logger
	clock    Clock
}

// NewCommandStatusHandler constructs a CommandStatusHandler.
func NewCommandStatusHandler(sessions *Sessions, checker StatusChecker, logger *log.Logger) (*CommandStatusHandler, error) {
	if sessions == nil {
		return nil, errors.New("apihttp: nil sessions")
	}
	if checker == nil {
		return nil, errors.New("apihttp: nil checker")
	}
	if logger == nil {
		return nil, errors.New("apihttp: nil logger")
	}
	return &CommandStatusHandler{sessions: sessions, checker: checker, logger: logger, clock: systemClock{}}, nil
}

// ServeHTTP handles POST /api/commands/status.
func (h *CommandStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, record, err := h.sessions.Resolve(r)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			writeError(w, http.StatusBadRequest, "no IMEIs uploaded, upload a file first")
			return
		}
		h.logger.Printf("status: resolving session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}

	var body struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		BulkCheck bool   `json:"bulk_check"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, counters, err := h.checker.Run(r.Context(), record.IMEIList, status.Request{
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Bulk:      body.BulkCheck,
	})
	if err != nil {
		switch {
		case errors.Is(err, status.ErrInvalidDateFormat), errors.Is(err, status.ErrInvalidRange):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, status.ErrNoIdentifiers):
			writeError(w, http.StatusBadRequest, "no IMEIs uploaded, upload a file first")
		default:
			h.logger.Printf("status: run: %v", err)
			writeError(w, http.StatusInternalServerError, "status check failed")
		}
		return
	}

	countersJSON, _ := json.Marshal(counters)

	switch r.URL.Query().Get("format") {
	case "json":
		metrics.IncReportExport("json", metrics.ResultSuccess)
		writeJSON(w, http.StatusOK, map[string]any{
			"counters": counters,
			"results":  results,
		})
	case "pdf":
		window := body.StartDate + " to " + body.EndDate
		data, err := report.BuildStatusResultsPDF(results, counters, window)
		if err != nil {
			metrics.IncReportExport("pdf", metrics.ResultError)
			h.logger.Printf("status: building pdf: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		metrics.IncReportExport("pdf", metrics.ResultSuccess)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.StatusResultsPDFFilename(h.clock.Now())+`"`)
		w.Header().Set("X-Status-Counters", string(countersJSON))
		_, _ = w.Write(data)
	default:
		data, err := report.BuildStatusResultsXLSX(results)
		if err != nil {
			metrics.IncReportExport("xlsx", metrics.ResultError)
			h.logger.Printf("status: building workbook: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		metrics.IncReportExport("xlsx", metrics.ResultSuccess)
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.StatusResultsFilename(h.clock.Now())+`"`)
		w.Header().Set("X-Status-Counters", string(countersJSON))
		_, _ = w.Write(data)
	}
}

// ClearUploadsHandler deletes the session's stored upload and drops the
// session cookie.
type ClearUploadsHandler struct {
	sessions *Sessions
	logger   *log.Logger
}

// NewClearUploadsHandler constructs a ClearUploadsHandler.
func NewClearUploadsHandler(sessions *Sessions, logger *log.Logger) (*ClearUploadsHandler, error) {
	if sessions == nil {
		return nil, errors.New("apihttp: nil sessions")
	}
	if logger == nil {
		return nil, errors.New("apihttp: nil logger")
	}
	return &ClearUploadsHandler{sessions: sessions, logger: logger}, nil
}

// ServeHTTP handles POST /api/uploads/clear.
func (h *ClearUploadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	uploadID, _, err := h.sessions.Resolve(r)
	if err == nil {
		if err := h.sessions.store.Delete(uploadID); err != nil {
			h.logger.Printf("clear: deleting upload %s: %v", uploadID, err)
		}
	}
	h.sessions.Drop(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SessionHandler reports whether the request's session has an upload, so the
// index page can restore its state after a reload.
type SessionHandler struct {
	sessions *Sessions
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *Sessions) (*SessionHandler, error) {
	if sessions == nil {
		return nil, errors.New("apihttp: nil sessions")
	}
	return &SessionHandler{sessions: sessions}, nil
}

// ServeHTTP handles GET /api/session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, record, err := h.sessions.Resolve(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"has_imeis": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"has_imeis":  true,
		"filename":   record.Filename,
		"imei_count": len(record.IMEIList),
	})
}
