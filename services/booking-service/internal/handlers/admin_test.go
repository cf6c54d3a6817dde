package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/libs/auth"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

func (s *server) book(t *testing.T, phone, start string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/public/orgs/barber/bookings", bookBody(s.cut.ID, phone, start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["appointment"].(map[string]any)["id"].(string)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/appointments", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/appointments", nil, withHeader("Authorization", "Bearer garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/appointments", nil, s.token(t, auth.RoleStaff))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/appointments", nil, s.token(t, auth.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAgenda(t *testing.T) {
	s := newServer(t)
	s.book(t, "5491122334455", "2030-03-04T11:00:00Z")
	s.book(t, "5491100000000", "2030-03-04T09:00:00Z")
	s.book(t, "5491100000000", "2030-03-05T09:00:00Z")

	rec := s.do(t, http.MethodGet, "/api/v1/admin/appointments?date=2030-03-04", nil, s.token(t, auth.RoleOwner))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	appts := body["appointments"].([]any)
	require.Len(t, appts, 2)
	first := appts[0].(map[string]any)
	assert.Equal(t, "2030-03-04T09:00:00Z", first["start"])
	assert.Equal(t, "Cut", first["service_name"])
	assert.Equal(t, "Ana", first["professional_name"])
	assert.Equal(t, "5491100000000", first["customer_phone"])

	// default is today per the injected clock
	rec = s.do(t, http.MethodGet, "/api/v1/admin/appointments", nil, s.token(t, auth.RoleOwner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2030-03-04", decode(t, rec)["date"])

	rec = s.do(t, http.MethodGet, "/api/v1/admin/appointments?date=tomorrow", nil, s.token(t, auth.RoleOwner))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", errorCode(t, rec))
}

func TestAdminStatusTransitions(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "5491122334455", "2030-03-04T11:00:00Z")
	path := "/api/v1/admin/appointments/" + id + "/status"
	owner := s.token(t, auth.RoleOwner)

	rec := s.do(t, http.MethodPatch, path, map[string]any{"status": "completed"}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "cancelled"}, owner)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, rec))

	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "done"}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", errorCode(t, rec))

	rec = s.do(t, http.MethodPatch, "/api/v1/admin/appointments/missing/status", map[string]any{"status": "cancelled"}, owner)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminStatusIsScopedToTokenOrganization(t *testing.T) {
	s := newServer(t)
	id := s.book(t, "5491122334455", "2030-03-04T11:00:00Z")

	other, err := s.store.CreateOrganization(context.Background(), model.Organization{Slug: "other", Name: "Other", Timezone: "UTC"})
	require.NoError(t, err)
	tok, err := s.signer.Sign("intruder", other.ID, auth.RoleOwner)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPatch, "/api/v1/admin/appointments/"+id+"/status", map[string]any{"status": "cancelled"},
		withHeader("Authorization", "Bearer "+tok))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.StatusConfirmed, s.store.Appointments()[0].Status)
}

func TestAdminCustomers(t *testing.T) {
	s := newServer(t)
	s.book(t, "5491122334455", "2030-03-04T11:00:00Z")
	s.book(t, "+54 9 11 2233 4455", "2030-03-04T15:00:00Z")
	owner := s.token(t, auth.RoleOwner)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/customers", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	customers := decode(t, rec)["customers"].([]any)
	require.Len(t, customers, 1)
	id := customers[0].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/customers/"+id+"/appointments", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode(t, rec)["appointments"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "2030-03-04T15:00:00Z", history[0].(map[string]any)["start"], "newest first")

	rec = s.do(t, http.MethodPatch, "/api/v1/admin/customers/"+id, map[string]any{"internal_notes": "prefers mornings"}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prefers mornings", decode(t, rec)["internal_notes"])

	rec = s.do(t, http.MethodGet, "/api/v1/admin/customers/missing/appointments", nil, owner)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHours(t *testing.T) {
	s := newServer(t)
	owner := s.token(t, auth.RoleOwner)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/hours", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode(t, rec)["days"].([]any)
	require.Len(t, days, 7)
	assert.Equal(t, "09:00", days[1].(map[string]any)["open"])

	rec = s.do(t, http.MethodPut, "/api/v1/admin/hours", map[string]any{"days": []map[string]any{
		{"weekday": 1, "is_open": true, "open": "10:00", "close": "14:00"},
		{"weekday": 0, "is_open": false, "open": "00:00", "close": "00:00"},
	}}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/public/orgs/barber/slots?date=2030-03-04&service_id="+s.cut.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["slots"], 8)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/hours", map[string]any{"days": []map[string]any{
		{"weekday": 2, "is_open": true, "open": "18:00", "close": "09:00"},
	}}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_hours", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v1/admin/hours", map[string]any{"days": []map[string]any{
		{"weekday": 7, "is_open": true, "open": "09:00", "close": "18:00"},
	}}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/hours", map[string]any{"days": []map[string]any{
		{"weekday": 2, "is_open": true, "open": "9am", "close": "18:00"},
	}}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOrganizationSettings(t *testing.T) {
	s := newServer(t)
	owner := s.token(t, auth.RoleOwner)

	rec := s.do(t, http.MethodPut, "/api/v1/admin/organization", map[string]any{
		"name":              "Barber & Co",
		"timezone":          "America/Argentina/Buenos_Aires",
		"whatsapp_number":   "5491100000000",
		"slot_step_minutes": 15,
		"slug":              "hijacked",
	}, owner)
	if rec.Code == http.StatusBadRequest && errorCode(t, rec) == "invalid_timezone" {
		t.Skip("tzdata unavailable")
	}
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Barber & Co", body["name"])
	assert.Equal(t, "barber", body["slug"])
	assert.EqualValues(t, 15, body["slot_step_minutes"])

	rec = s.do(t, http.MethodPut, "/api/v1/admin/organization", map[string]any{"name": "X", "timezone": "Mars/Olympus"}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_timezone", errorCode(t, rec))
}

func TestAdminCatalog(t *testing.T) {
	s := newServer(t)
	owner := s.token(t, auth.RoleOwner)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/services", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["services"], 2, "inactive services are listed for staff")

	rec = s.do(t, http.MethodPost, "/api/v1/admin/services", map[string]any{"name": "Shave", "duration_minutes": 20, "price": 8}, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, true, created["is_active"])
	id := created["id"].(string)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/services/"+id, map[string]any{"name": "Shave", "duration_minutes": 25, "price": 9, "is_active": false}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["is_active"])

	rec = s.do(t, http.MethodPost, "/api/v1/admin/services", map[string]any{"name": "Bad", "duration_minutes": 0}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_duration", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/admin/services", map[string]any{"name": "Bad", "duration_minutes": 10, "price": -1}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_price", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v1/admin/services/missing", map[string]any{"name": "X", "duration_minutes": 10}, owner)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/professionals", map[string]any{"name": "Bruno"}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/admin/professionals", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	profs := decode(t, rec)["professionals"].([]any)
	require.Len(t, profs, 2)
	assert.Equal(t, "Ana", profs[0].(map[string]any)["name"])

	rec = s.do(t, http.MethodPost, "/api/v1/admin/professionals", map[string]any{"name": " "}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

