package gotable

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Response is an artifact the controller produced instead of a page render.
type Response interface {
	http.Handler
}

// RedirectResponse redirects the client.
type RedirectResponse struct {
	URL string
}

// Redirect returns a redirect to url.
func Redirect(url string) *RedirectResponse {
	return &RedirectResponse{URL: url}
}

func (r *RedirectResponse) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, r.URL, http.StatusFound)
}

// JSONResponse writes Value as a JSON document.
type JSONResponse struct {
	Status int
	Value  any
}

// JSON returns a 200 response of value.
func JSON(value any) *JSONResponse {
	return &JSONResponse{Status: http.StatusOK, Value: value}
}

func (r *JSONResponse) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)

	if err := json.NewEncoder(w).Encode(r.Value); err != nil {
		slog.Error("write json response", slog.Any("err", err))
	}
}

// PageEnvelope is the partial page refresh payload.
type PageEnvelope struct {
	PageCount int    `json:"page_count"`
	Body      string `json:"body"`
	Paginator string `json:"paginator"`
}

// SaveResult is the payload of the profile save actions.
type SaveResult struct {
	Status  string `json:"status"`
	ID      uint   `json:"id"`
	Created bool   `json:"created"`
}

// StatusResult is the payload of the profile removal action.
type StatusResult struct {
	Status string `json:"status"`
}

// CSVResponse writes records as an attached CSV file.
type CSVResponse struct {
	Filename string
	Dialect  CSVDialect
	Records  [][]string

	log *slog.Logger
}

func (r *CSVResponse) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", r.Filename))
	w.WriteHeader(http.StatusOK)

	if err := writeCSV(w, r.Dialect, r.Records); err != nil {
		logger := r.log
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("write csv response", slog.String("filename", r.Filename), slog.Any("err", err))
	}
}

func writeCSV(w io.Writer, dialect CSVDialect, records [][]string) error {
	cw := csv.NewWriter(w)
	if dialect.Comma != 0 {
		cw.Comma = dialect.Comma
	}
	cw.UseCRLF = dialect.UseCRLF

	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()

	return cw.Error()
}

var (
	_ Response = (*RedirectResponse)(nil)
	_ Response = (*JSONResponse)(nil)
	_ Response = (*CSVResponse)(nil)
)
