package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/presentation/controllers/dtos"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/httpapi"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ChangeLogController struct {
	changelog *services.ChangeLogService
	basePath  string
	now       func() time.Time
}

func NewChangeLogController(app application.Application) application.Controller {
	return &ChangeLogController{
		changelog: app.Service(services.ChangeLogService{}).(*services.ChangeLogService),
		basePath:  "/api/v1/changelog",
		now:       time.Now,
	}
}

func (c *ChangeLogController) Key() string {
	return c.basePath
}

func (c *ChangeLogController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("/weekly", c.Weekly).Methods(http.MethodGet)
}

// Weekly serves the Monday to Sunday week containing week_start, or the
// current week when week_start is absent.
func (c *ChangeLogController) Weekly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := c.changelog.Settings().Location
	day := c.now().In(loc)
	if v := q.Get("week_start"); v != "" {
		parsed, err := time.ParseInLocation(proposal.DateLayout, v, loc)
		if err != nil {
			writeAPIError(w, http.StatusUnprocessableEntity, services.CodeInvalidField,
				"week_start must be YYYY-MM-DD", map[string]string{"field": "week_start"})
			return
		}
		day = parsed
	}

	report, err := c.changelog.WeeklyReport(r.Context(), day)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format := q.Get("format"); format {
	case "", "json":
		_ = httpapi.WriteJSON(w, http.StatusOK, dtos.WeeklyChangeLog{
			WeekStart: report.Start,
			WeekEnd:   report.End,
			Entries:   dtos.ChangeLogEntriesFrom(report.Entries),
		})
	case "text", "txt":
		c.attachment(w, report.Filename("txt"), "text/plain; charset=utf-8", report.WriteText)
	case "xlsx":
		c.attachment(w, report.Filename("xlsx"), xlsxContentType, report.WriteXLSX)
	default:
		writeAPIError(w, http.StatusUnprocessableEntity, services.CodeInvalidField,
			fmt.Sprintf("unsupported format %q", format), map[string]string{"field": "format"})
	}
}

func (c *ChangeLogController) attachment(
	w http.ResponseWriter,
	filename, contentType string,
	render func(io.Writer) error,
) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
