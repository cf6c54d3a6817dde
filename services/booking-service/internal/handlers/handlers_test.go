package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/libs/auth"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/draft"
	"github.com/turnly/turnly/services/booking-service/internal/handlers"
	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/storage/memory"
)

var testNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

type server struct {
	mux    *http.ServeMux
	store  *memory.Store
	signer *auth.Signer
	org    model.Organization
	cut    model.Service
	ana    model.Professional
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	org, err := store.CreateOrganization(ctx, model.Organization{Slug: "barber", Name: "Barber Shop", Timezone: "UTC"})
	require.NoError(t, err)
	cut, err := store.CreateService(ctx, model.Service{OrganizationID: org.ID, Name: "Cut", DurationMinutes: 30, Price: 12.5, IsActive: true})
	require.NoError(t, err)
	_, err = store.CreateService(ctx, model.Service{OrganizationID: org.ID, Name: "Beard", DurationMinutes: 15, IsActive: false})
	require.NoError(t, err)
	ana, err := store.CreateProfessional(ctx, model.Professional{OrganizationID: org.ID, Name: "Ana"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return testNow }
	engine := availability.NewEngine(store, logger, availability.WithClock(clock))
	booker := booking.NewService(store, logger, clock)
	flow := draft.NewFlow(draft.NewMemoryStore(time.Hour), store, engine, booker, logger, clock)

	signer, err := auth.NewSigner("test-secret-0123456789", "turnly", time.Hour)
	require.NoError(t, err)

	mux := http.NewServeMux()
	handlers.NewPublicHandler(store, engine, booker, logger).Register(mux)
	handlers.NewDraftHandler(flow, handlers.CookieConfig{}, logger).Register(mux)
	handlers.NewAdminHandler(store, booker, logger, clock).Register(mux, auth.RequireRole(signer, auth.RoleOwner, auth.RoleAdmin))

	return &server{mux: mux, store: store, signer: signer, org: org, cut: cut, ana: ana}
}

type reqOpt func(*http.Request)

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (s *server) token(t *testing.T, role string) reqOpt {
	t.Helper()
	tok, err := s.signer.Sign("staff-1", s.org.ID, role)
	require.NoError(t, err)
	return withHeader("Authorization", "Bearer "+tok)
}

func (s *server) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return e["code"].(string)
}

func TestPublicCatalog(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/public/orgs/barber", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Barber Shop", decode(t, rec)["name"])

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	services := decode(t, rec)["services"].([]any)
	require.Len(t, services, 1)
	assert.Equal(t, "Cut", services[0].(map[string]any)["name"])

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/professionals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["professionals"], 1)

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/nope/services", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "organization_not_found", errorCode(t, rec))
}

func TestPublicSlots(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/slots?date=2030-03-04&service_id="+s.cut.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2030-03-04", body["date"])
	assert.EqualValues(t, 30, body["duration_minutes"])
	slots := body["slots"].([]any)
	require.Len(t, slots, 18)
	assert.Equal(t, "2030-03-04T09:00:00Z", slots[0].(map[string]any)["start"])

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/slots?service_id="+s.cut.ID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_date", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/slots?date=2030-03-04", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/slots?date=2030-03-04&duration_minutes=60&professional_id=any", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["slots"], 17)
}

func TestPublicSlotsUnknownProfessional(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	other, err := s.store.CreateOrganization(ctx, model.Organization{Slug: "other", Name: "Other", Timezone: "UTC"})
	require.NoError(t, err)
	guest, err := s.store.CreateProfessional(ctx, model.Professional{OrganizationID: other.ID, Name: "Carla"})
	require.NoError(t, err)

	base := "/api/v1/public/orgs/barber/slots?date=2030-03-04&service_id=" + s.cut.ID + "&professional_id="
	for _, id := range []string{"00000000-0000-0000-0000-000000000000", guest.ID} {
		rec := s.do(t, http.MethodGet, base+id, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Equal(t, "professional_not_found", errorCode(t, rec))
	}

	rec := s.do(t, http.MethodGet, base+s.ana.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["slots"], 18)
}

func bookBody(serviceID, phone, start string) map[string]any {
	return map[string]any{
		"service_id":      serviceID,
		"professional_id": "any",
		"start":           start,
		"customer":        map[string]any{"full_name": "Lucia", "phone": phone},
	}
}

func TestPublicBook(t *testing.T) {
	s := newServer(t)
	path := "/api/v1/public/orgs/barber/bookings"

	rec := s.do(t, http.MethodPost, path, bookBody(s.cut.ID, "5491122334455", "2030-03-04T10:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode(t, rec)["appointment"].(map[string]any)
	assert.Equal(t, "confirmed", appt["status"])
	assert.Equal(t, "2030-03-04T10:30:00Z", appt["end"])

	rec = s.do(t, http.MethodPost, path, bookBody(s.cut.ID, "5491100000000", "2030-03-04T10:00:00Z"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_taken", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, path, bookBody(s.cut.ID, "5491100000000", "2030-03-04T11:07:00Z"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "slot_off_grid", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, path, "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, path, bookBody(s.cut.ID, "abc", "2030-03-04T12:00:00Z"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_phone", errorCode(t, rec))
}

func TestPublicBookIdempotencyKey(t *testing.T) {
	s := newServer(t)
	path := "/api/v1/public/orgs/barber/bookings"
	body := bookBody(s.cut.ID, "5491122334455", "2030-03-04T10:00:00Z")

	first := s.do(t, http.MethodPost, path, body, withHeader("Idempotency-Key", "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	second := s.do(t, http.MethodPost, path, body, withHeader("Idempotency-Key", "abc"))
	require.Equal(t, http.StatusOK, second.Code)

	id1 := decode(t, first)["appointment"].(map[string]any)["id"]
	id2 := decode(t, second)["appointment"].(map[string]any)["id"]
	assert.Equal(t, id1, id2)
	assert.Len(t, s.store.Appointments(), 1)
}

func TestDraftFlow(t *testing.T) {
	s := newServer(t)
	base := "/api/v1/public/orgs/barber/drafts"

	rec := s.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == handlers.DraftCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/v1/public/orgs/barber", cookie.Path)
	assert.Equal(t, "service", decode(t, rec)["next_step"])

	rec = s.do(t, http.MethodPut, base+"/current/slot", map[string]any{"start": "2030-03-04T10:00:00Z"}, withCookie(cookie))
	require.Equal(t, http.StatusConflict, rec.Code)
	detail := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "step_required", detail["code"])
	assert.Equal(t, "service", detail["redirect_step"])

	rec = s.do(t, http.MethodPut, base+"/current/service", map[string]any{"service_id": s.cut.ID}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, base+"/current/professional", map[string]any{"professional_id": s.ana.ID}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, base+"/current/slot", map[string]any{"start": "2030-03-04T10:00:00Z"}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, base+"/current/contact", map[string]any{"full_name": "Lucia", "phone": "+54 9 11 2233 4455"}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec)
	assert.Equal(t, "contact", view["current_step"])
	assert.Equal(t, "committed", view["next_step"])

	rec = s.do(t, http.MethodGet, base+"/current", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.cut.ID, decode(t, rec)["service"].(map[string]any)["id"])

	rec = s.do(t, http.MethodPost, base+"/current/commit", nil, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Ana", decode(t, rec)["professional_name"])

	rec = s.do(t, http.MethodGet, base+"/receipt", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cut", decode(t, rec)["service_name"])

	rec = s.do(t, http.MethodGet, base+"/current", nil, withCookie(cookie))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "draft_not_found", errorCode(t, rec))
}

func TestDraftWithoutCookie(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/drafts/current", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/drafts/receipt", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "receipt_not_found", errorCode(t, rec))
}
