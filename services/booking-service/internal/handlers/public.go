package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const publicPrefix = "/api/v1/public/orgs/{slug}"

type Catalog interface {
	OrganizationBySlug(ctx context.Context, slug string) (model.Organization, error)
	ListServices(ctx context.Context, organizationID string, includeInactive bool) ([]model.Service, error)
	ListProfessionals(ctx context.Context, organizationID string) ([]model.Professional, error)
}

type SlotFinder interface {
	ComputeSlots(ctx context.Context, q availability.Query) (availability.Result, error)
}

type Booker interface {
	Commit(ctx context.Context, req booking.Request) (booking.Confirmation, error)
}

// PublicHandler serves the unauthenticated customer API.
type PublicHandler struct {
	catalog Catalog
	slots   SlotFinder
	booker  Booker
	logger  *slog.Logger
}

func NewPublicHandler(catalog Catalog, slots SlotFinder, booker Booker, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{catalog: catalog, slots: slots, booker: booker, logger: logger}
}

func (h *PublicHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+publicPrefix, h.Organization)
	mux.HandleFunc("GET "+publicPrefix+"/services", h.Services)
	mux.HandleFunc("GET "+publicPrefix+"/professionals", h.Professionals)
	mux.HandleFunc("GET "+publicPrefix+"/slots", h.Slots)
	mux.HandleFunc("POST "+publicPrefix+"/bookings", h.Book)
}

func (h *PublicHandler) Organization(w http.ResponseWriter, r *http.Request) {
	org, err := h.catalog.OrganizationBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrganization(org))
}

func (h *PublicHandler) Services(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	org, err := h.catalog.OrganizationBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	svcs, err := h.catalog.ListServices(ctx, org.ID, false)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": toServices(svcs)})
}

func (h *PublicHandler) Professionals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	org, err := h.catalog.OrganizationBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	profs, err := h.catalog.ListProfessionals(ctx, org.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"professionals": toProfessionals(profs)})
}

// Slots: ?date=YYYY-MM-DD&service_id=...|duration_minutes=...&professional_id=...|any
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, r, h.logger, apperr.Validation("missing_date", "date is required (YYYY-MM-DD)"))
		return
	}
	query := availability.Query{
		OrganizationSlug: r.PathValue("slug"),
		Date:             date,
		ServiceID:        strings.TrimSpace(q.Get("service_id")),
		Professional:     model.ParseProfessionalFilter(strings.TrimSpace(q.Get("professional_id"))),
	}
	if raw := q.Get("duration_minutes"); raw != "" && query.ServiceID == "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, h.logger, apperr.Validation("invalid_duration", "duration_minutes must be a whole number"))
			return
		}
		query.Duration = time.Duration(minutes) * time.Minute
	}
	if query.ServiceID == "" && query.Duration == 0 {
		writeError(w, r, h.logger, apperr.Validation("missing_service", "service_id is required"))
		return
	}

	res, err := h.slots.ComputeSlots(r.Context(), query)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlots(res))
}

type bookRequest struct {
	ServiceID      string    `json:"service_id"`
	ProfessionalID string    `json:"professional_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Customer       struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	} `json:"customer"`
}

// Book commits a booking in one request. An Idempotency-Key header makes
// retries return the original appointment with 200 instead of 201.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	conf, err := h.booker.Commit(r.Context(), booking.Request{
		OrganizationSlug: r.PathValue("slug"),
		CustomerName:     req.Customer.FullName,
		CustomerPhone:    req.Customer.Phone,
		ServiceID:        req.ServiceID,
		Professional:     model.ParseProfessionalFilter(strings.TrimSpace(req.ProfessionalID)),
		Start:            req.Start,
		End:              req.End,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if conf.Replayed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, toBooking(conf))
}
