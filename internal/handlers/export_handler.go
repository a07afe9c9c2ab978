package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/goldenbridgewomen/gbw-tracker/internal/export"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	log "github.com/sirupsen/logrus"
)

type ExportHandler struct {
	Service *services.ExportService
}

func NewExportHandler(service *services.ExportService) *ExportHandler {
	return &ExportHandler{Service: service}
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// ExportHandler handles GET /export?programId=&userId=&format=json|csv|html and returns
// the report as a download.
func (h *ExportHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	programID, ok := queryID(w, r, "programId")
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}

	report, err := h.Service.BuildReport(r.Context(), actor, programID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report, format); err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"by": actor.ID.Hex(), "format": format, "rows": len(report.Rows)}).Info("Report exported")
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(report, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func reportFilename(report *export.ProgramReport, format export.Format) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(report.Title), "-"), "-")
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("%s-%s.%s", slug, report.GeneratedAt.Format("2006-01-02"), format.Extension())
}
