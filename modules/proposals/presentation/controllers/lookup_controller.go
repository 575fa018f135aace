package controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/presentation/controllers/dtos"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/httpapi"
)

// RegistryController serves the lookup registries and investigators.
type RegistryController struct {
	lookups       *services.LookupService
	investigators *services.InvestigatorService
	basePath      string
}

func NewRegistryController(app application.Application) application.Controller {
	return &RegistryController{
		lookups:       app.Service(services.LookupService{}).(*services.LookupService),
		investigators: app.Service(services.InvestigatorService{}).(*services.InvestigatorService),
		basePath:      "/api/v1",
	}
}

func (c *RegistryController) Key() string {
	return c.basePath + "/lookups"
}

func (c *RegistryController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("/lookups/{kind}", c.ListLookups).Methods(http.MethodGet)
	api.HandleFunc("/investigators", c.ListInvestigators).Methods(http.MethodGet)
	api.HandleFunc("/investigators/external", c.CreateExternal).Methods(http.MethodPost)
	api.HandleFunc("/investigators/{id}", c.GetInvestigator).Methods(http.MethodGet)
}

func (c *RegistryController) ListLookups(w http.ResponseWriter, r *http.Request) {
	kind, err := lookup.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		writeAPIError(w, http.StatusNotFound, services.CodeNotFound, err.Error(), nil)
		return
	}
	items, err := c.lookups.List(r.Context(), kind, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.LookupsFrom(items))
}

func (c *RegistryController) ListInvestigators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative number")
			return
		}
		limit = n
	}
	var kind investigator.Kind
	switch v := investigator.Kind(q.Get("kind")); v {
	case "", investigator.KindInternal, investigator.KindExternal:
		kind = v
	default:
		writeAPIError(w, http.StatusUnprocessableEntity, services.CodeInvalidField, "unknown investigator kind",
			map[string]string{"field": "kind"})
		return
	}
	items, err := c.investigators.Suggest(r.Context(), q.Get("q"), kind, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.InvestigatorsFrom(items))
}

func (c *RegistryController) GetInvestigator(w http.ResponseWriter, r *http.Request) {
	inv, err := c.investigators.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.InvestigatorFrom(inv))
}

func (c *RegistryController) CreateExternal(w http.ResponseWriter, r *http.Request) {
	var dto investigator.CreateExternalDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	inv, err := c.investigators.CreateExternal(r.Context(), &dto)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.InvestigatorFrom(inv))
}
