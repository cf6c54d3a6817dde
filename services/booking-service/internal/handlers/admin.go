package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/turnly/turnly/libs/auth"
	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

type AdminStore interface {
	OrganizationByID(ctx context.Context, id string) (model.Organization, error)
	UpdateOrganization(ctx context.Context, org model.Organization) (model.Organization, error)

	Agenda(ctx context.Context, organizationID string, start, end time.Time) ([]model.AgendaEntry, error)

	ListCustomers(ctx context.Context, organizationID string) ([]model.Customer, error)
	CustomerByID(ctx context.Context, organizationID, id string) (model.Customer, error)
	UpdateCustomerNotes(ctx context.Context, organizationID, id, notes string) (model.Customer, error)
	CustomerHistory(ctx context.Context, organizationID, customerID string) ([]model.AgendaEntry, error)

	ListHours(ctx context.Context, organizationID string) ([]model.DayHours, error)
	ReplaceHours(ctx context.Context, organizationID string, week []model.DayHours) error

	ListServices(ctx context.Context, organizationID string, includeInactive bool) ([]model.Service, error)
	CreateService(ctx context.Context, svc model.Service) (model.Service, error)
	UpdateService(ctx context.Context, svc model.Service) (model.Service, error)
	ListProfessionals(ctx context.Context, organizationID string) ([]model.Professional, error)
	CreateProfessional(ctx context.Context, p model.Professional) (model.Professional, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, organizationID, appointmentID string, next model.Status) (model.Appointment, error)
}

// AdminHandler serves the staff API. Every route runs behind the auth guard
// and reads the organization from the token claims.
type AdminHandler struct {
	store  AdminStore
	status StatusUpdater
	logger *slog.Logger
	now    func() time.Time
}

func NewAdminHandler(store AdminStore, status StatusUpdater, logger *slog.Logger, now func() time.Time) *AdminHandler {
	if now == nil {
		now = time.Now
	}
	return &AdminHandler{store: store, status: status, logger: logger, now: now}
}

func (h *AdminHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"GET /api/v1/admin/organization":                h.GetOrganization,
		"PUT /api/v1/admin/organization":                h.UpdateOrganization,
		"GET /api/v1/admin/appointments":                h.Agenda,
		"PATCH /api/v1/admin/appointments/{id}/status":  h.UpdateStatus,
		"GET /api/v1/admin/customers":                   h.Customers,
		"PATCH /api/v1/admin/customers/{id}":            h.UpdateCustomer,
		"GET /api/v1/admin/customers/{id}/appointments": h.CustomerHistory,
		"GET /api/v1/admin/hours":                       h.GetHours,
		"PUT /api/v1/admin/hours":                       h.ReplaceHours,
		"GET /api/v1/admin/services":                    h.ListServices,
		"POST /api/v1/admin/services":                   h.CreateService,
		"PUT /api/v1/admin/services/{id}":               h.UpdateService,
		"GET /api/v1/admin/professionals":               h.ListProfessionals,
		"POST /api/v1/admin/professionals":              h.CreateProfessional,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, guard(fn))
	}
}

// orgID is set by the auth guard; a missing claim means the handler was
// mounted without it.
func orgID(r *http.Request) string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.OrganizationID
}

func (h *AdminHandler) organization(w http.ResponseWriter, r *http.Request) (model.Organization, bool) {
	org, err := h.store.OrganizationByID(r.Context(), orgID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return model.Organization{}, false
	}
	return org, true
}

func (h *AdminHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, ok := h.organization(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrganization(org))
}

type organizationUpdate struct {
	Name            string `json:"name"`
	Timezone        string `json:"timezone"`
	WhatsAppNumber  string `json:"whatsapp_number"`
	LogoURL         string `json:"logo_url"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
}

func (h *AdminHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var body organizationUpdate
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	org, err := h.store.UpdateOrganization(r.Context(), model.Organization{
		ID:              orgID(r),
		Name:            strings.TrimSpace(body.Name),
		Timezone:        strings.TrimSpace(body.Timezone),
		WhatsAppNumber:  strings.TrimSpace(body.WhatsAppNumber),
		LogoURL:         strings.TrimSpace(body.LogoURL),
		SlotStepMinutes: body.SlotStepMinutes,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("organization settings updated", "organization_id", org.ID)
	httpx.WriteJSON(w, http.StatusOK, toOrganization(org))
}

// Agenda lists one local day, ?date=YYYY-MM-DD (default today).
func (h *AdminHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	org, ok := h.organization(w, r)
	if !ok {
		return
	}
	loc, _ := org.Location()
	day := h.now().In(loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation(availability.DateLayout, raw, loc)
		if err != nil {
			writeError(w, r, h.logger, apperr.Validation("invalid_date", "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

	entries, err := h.store.Agenda(r.Context(), org.ID, start, end)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"date":         start.Format(availability.DateLayout),
		"timezone":     loc.String(),
		"appointments": toAgenda(entries, loc),
	})
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	next, ok := model.ParseStatus(strings.TrimSpace(body.Status))
	if !ok {
		writeError(w, r, h.logger, apperr.Validation("invalid_status", "status must be pending, confirmed, cancelled or completed"))
		return
	}
	org, ok := h.organization(w, r)
	if !ok {
		return
	}
	appt, err := h.status.UpdateStatus(r.Context(), org.ID, r.PathValue("id"), next)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loc, _ := org.Location()
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt, loc))
}

func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context(), orgID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]customerDTO, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomer(c))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"customers": out})
}

func (h *AdminHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InternalNotes string `json:"internal_notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.store.UpdateCustomerNotes(r.Context(), orgID(r), r.PathValue("id"), strings.TrimSpace(body.InternalNotes))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCustomer(c))
}

func (h *AdminHandler) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	org, ok := h.organization(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	customer, err := h.store.CustomerByID(ctx, org.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	history, err := h.store.CustomerHistory(ctx, org.ID, customer.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loc, _ := org.Location()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"customer":     toCustomer(customer),
		"appointments": toAgenda(history, loc),
	})
}

func (h *AdminHandler) GetHours(w http.ResponseWriter, r *http.Request) {
	week, err := h.store.ListHours(r.Context(), orgID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]dayHoursDTO, 0, len(week))
	for _, d := range week {
		out = append(out, toDayHours(d))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"days": out})
}

func (h *AdminHandler) ReplaceHours(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Days []dayHoursDTO `json:"days"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	week := make([]model.DayHours, 0, len(body.Days))
	for _, d := range body.Days {
		m, err := d.model()
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		week = append(week, m)
	}
	if err := h.store.ReplaceHours(r.Context(), orgID(r), week); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.GetHours(w, r)
}

func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.store.ListServices(r.Context(), orgID(r), true)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": toServices(svcs)})
}

type serviceInput struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	IsActive        *bool   `json:"is_active"`
}

func (in serviceInput) model(organizationID, id string) model.Service {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return model.Service{
		ID:              id,
		OrganizationID:  organizationID,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price,
		IsActive:        active,
	}
}

func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var body serviceInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	svc, err := h.store.CreateService(r.Context(), body.model(orgID(r), ""))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toService(svc))
}

func (h *AdminHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var body serviceInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	svc, err := h.store.UpdateService(r.Context(), body.model(orgID(r), r.PathValue("id")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toService(svc))
}

func (h *AdminHandler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	profs, err := h.store.ListProfessionals(r.Context(), orgID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"professionals": toProfessionals(profs)})
}

func (h *AdminHandler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		ColorCode string `json:"color_code"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.store.CreateProfessional(r.Context(), model.Professional{
		OrganizationID: orgID(r),
		Name:           strings.TrimSpace(body.Name),
		ColorCode:      strings.TrimSpace(body.ColorCode),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toProfessional(p))
}
