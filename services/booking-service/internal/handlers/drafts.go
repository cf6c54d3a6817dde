package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/services/booking-service/internal/draft"
)

const DraftCookieName = "turnly_draft"

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// DraftHandler exposes the booking wizard. The draft id travels in a cookie
// scoped to the organization's public path.
type DraftHandler struct {
	flow   *draft.Flow
	cookie CookieConfig
	logger *slog.Logger
}

func NewDraftHandler(flow *draft.Flow, cookie CookieConfig, logger *slog.Logger) *DraftHandler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = draft.DefaultTTL
	}
	return &DraftHandler{flow: flow, cookie: cookie, logger: logger}
}

func (h *DraftHandler) Register(mux *http.ServeMux) {
	base := publicPrefix + "/drafts"
	mux.HandleFunc("POST "+base, h.Start)
	mux.HandleFunc("GET "+base+"/current", h.Current)
	mux.HandleFunc("PUT "+base+"/current/service", h.SelectService)
	mux.HandleFunc("PUT "+base+"/current/professional", h.SelectProfessional)
	mux.HandleFunc("PUT "+base+"/current/slot", h.SelectSlot)
	mux.HandleFunc("PUT "+base+"/current/contact", h.ProvideContact)
	mux.HandleFunc("POST "+base+"/current/commit", h.Commit)
	mux.HandleFunc("GET "+base+"/receipt", h.Receipt)
}

type draftView struct {
	draft.Draft
	CurrentStep draft.Step `json:"current_step"`
	NextStep    draft.Step `json:"next_step"`
}

func viewOf(d draft.Draft) draftView {
	return draftView{Draft: d, CurrentStep: d.CurrentStep(), NextStep: d.NextStep()}
}

func (h *DraftHandler) Start(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	d, err := h.flow.Start(r.Context(), slug)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setCookie(w, slug, d.ID)
	httpx.WriteJSON(w, http.StatusCreated, viewOf(d))
}

func (h *DraftHandler) Current(w http.ResponseWriter, r *http.Request) {
	d, err := h.flow.Get(r.Context(), r.PathValue("slug"), draftID(r))
	h.respond(w, r, d, err)
}

func (h *DraftHandler) SelectService(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceID string `json:"service_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.flow.SelectService(r.Context(), r.PathValue("slug"), draftID(r), body.ServiceID)
	h.respond(w, r, d, err)
}

func (h *DraftHandler) SelectProfessional(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProfessionalID string `json:"professional_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.flow.SelectProfessional(r.Context(), r.PathValue("slug"), draftID(r), body.ProfessionalID)
	h.respond(w, r, d, err)
}

func (h *DraftHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start time.Time `json:"start"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.flow.SelectSlot(r.Context(), r.PathValue("slug"), draftID(r), body.Start)
	h.respond(w, r, d, err)
}

func (h *DraftHandler) ProvideContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.flow.ProvideContact(r.Context(), r.PathValue("slug"), draftID(r), body.FullName, body.Phone)
	h.respond(w, r, d, err)
}

func (h *DraftHandler) Commit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.flow.Commit(r.Context(), r.PathValue("slug"), draftID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *DraftHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.flow.Receipt(r.Context(), r.PathValue("slug"), draftID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, receipt)
}

func (h *DraftHandler) respond(w http.ResponseWriter, r *http.Request, d draft.Draft, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(d))
}

func (h *DraftHandler) setCookie(w http.ResponseWriter, slug, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookieName,
		Value:    id,
		Path:     "/api/v1/public/orgs/" + slug,
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func draftID(r *http.Request) string {
	c, err := r.Cookie(DraftCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
