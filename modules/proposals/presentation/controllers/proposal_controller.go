package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/presentation/controllers/dtos"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/httpapi"
)

// Paging bounds list endpoints.
type Paging struct {
	Default int
	Max     int
}

func (p Paging) parse(r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	limit, offset := p.Default, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		limit = min(n, p.Max)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

type ProposalsController struct {
	proposals *services.ProposalService
	changelog *services.ChangeLogService
	paging    Paging
	basePath  string
	now       func() time.Time
}

func NewProposalsController(app application.Application, paging Paging) application.Controller {
	return &ProposalsController{
		proposals: app.Service(services.ProposalService{}).(*services.ProposalService),
		changelog: app.Service(services.ChangeLogService{}).(*services.ChangeLogService),
		paging:    paging,
		basePath:  "/api/v1",
		now:       time.Now,
	}
}

func (c *ProposalsController) Key() string {
	return c.basePath + "/proposals"
}

func (c *ProposalsController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()

	api.HandleFunc("/codes/next", c.NextCode).Methods(http.MethodGet)
	api.HandleFunc("/proposals", c.Create).Methods(http.MethodPost)
	api.HandleFunc("/proposals", c.Search).Methods(http.MethodGet)
	api.HandleFunc("/proposals/{code}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/proposals/{code}", c.Edit).Methods(http.MethodPatch)
	api.HandleFunc("/proposals/{code}", c.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/proposals/{code}/transitions", c.Transition).Methods(http.MethodPost)
	api.HandleFunc("/proposals/{code}/history", c.History).Methods(http.MethodGet)
}

func (c *ProposalsController) currency() string {
	return c.changelog.Settings().Currency
}

func (c *ProposalsController) NextCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := c.now().Year()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "year must be a number")
			return
		}
		year = n
	}
	code, err := c.proposals.AllocateCode(r.Context(), year, q.Get("department"), q.Get("type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (c *ProposalsController) Create(w http.ResponseWriter, r *http.Request) {
	var dto proposal.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	p, err := c.proposals.CreateProposal(r.Context(), &dto, composables.UseActor(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", c.basePath+"/proposals/"+p.Code().String())
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.ProposalFrom(p, c.currency()))
}

func (c *ProposalsController) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, ok := c.paging.parse(r)
	if !ok {
		writeBadRequest(w, "limit and offset must be non-negative numbers")
		return
	}
	params := &proposal.FindParams{
		Code:       q.Get("code"),
		PIName:     q.Get("pi"),
		Title:      q.Get("title"),
		Department: strings.ToUpper(strings.TrimSpace(q.Get("department"))),
		Agency:     q.Get("agency"),
	}
	if v := q.Get("status"); v != "" {
		status, err := proposal.ParseStatus(v)
		if err != nil {
			writeAPIError(w, http.StatusUnprocessableEntity, services.CodeInvalidField, err.Error(),
				map[string]string{"field": "status"})
			return
		}
		params.Status = status
	}

	total, err := c.proposals.CountProposals(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	params.Limit, params.Offset = limit, offset
	items, err := c.proposals.SearchProposals(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page := dtos.ProposalPage{Items: make([]dtos.Proposal, 0, len(items)), Total: total, Limit: limit, Offset: offset}
	for _, p := range items {
		page.Items = append(page.Items, dtos.ProposalFrom(p, c.currency()))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, page)
}

func (c *ProposalsController) Get(w http.ResponseWriter, r *http.Request) {
	p, err := c.proposals.GetProposal(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ProposalFrom(p, c.currency()))
}

// Edit accepts an RFC 7386 merge patch of the editable fields.
func (c *ProposalsController) Edit(w http.ResponseWriter, r *http.Request) {
	body, err := httpapi.ReadBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	patch, err := proposal.ParseEditDTO(body)
	if err != nil {
		writeServiceError(w, services.MapError(err))
		return
	}
	p, err := c.proposals.EditProposal(r.Context(), mux.Vars(r)["code"], patch, composables.UseActor(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ProposalFrom(p, c.currency()))
}

func (c *ProposalsController) Transition(w http.ResponseWriter, r *http.Request) {
	var dto proposal.TransitionDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if err := dto.Validate(); err != nil {
		writeServiceError(w, services.MapError(err))
		return
	}
	target, err := proposal.ParseStatus(dto.Status)
	if err != nil {
		writeServiceError(w, services.MapError(err))
		return
	}
	p, err := c.proposals.TransitionStatus(r.Context(), mux.Vars(r)["code"], target, dto.Fields(), composables.UseActor(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ProposalFrom(p, c.currency()))
}

func (c *ProposalsController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.proposals.DeleteProposal(r.Context(), mux.Vars(r)["code"], composables.UseActor(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ProposalsController) History(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if _, err := c.proposals.GetProposal(r.Context(), code); err != nil {
		writeServiceError(w, err)
		return
	}
	entries, err := c.changelog.History(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ChangeLogEntriesFrom(entries))
}
