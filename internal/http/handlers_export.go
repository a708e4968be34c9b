package http

import (
	"bytes"
	"net/http"
	"strconv"

	"expensekeeper/internal/export"
)

// handleExportCSV downloads every expense, newest first.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Expenses.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, "export_csv", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, items, s.loc); err != nil {
		s.fail(w, r, "export_csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now().In(s.loc))+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleExportSheets pushes the full list to the configured spreadsheet.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sheets == nil {
		ErrorResponse(http.StatusNotImplemented, "not_configured", "spreadsheet export not configured").Write(w)
		return
	}
	if err := s.svc.Sheets.Sync(r.Context()); err != nil {
		s.fail(w, r, "export_sheets", err)
		return
	}
	NewJSONResponse().Data(map[string]string{"status": "synced"}).Write(w)
}
