// Package memory is an in-process store with the same semantics as the
// Postgres one, for tests and local runs without a database.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
)

var ErrEventsUnavailable = errors.New("memory: outbox unavailable")

type Store struct {
	mu            sync.RWMutex
	orgs          map[string]model.Organization
	hours         map[string]map[time.Weekday]model.DayHours
	services      map[string]model.Service
	professionals map[string]model.Professional
	customers     map[string]model.Customer
	appointments  map[string]model.Appointment
	keys          map[string]string
	events        []outbox.Event
	failEvents    bool
	now           func() time.Time
}

func New() *Store {
	return &Store{
		orgs:          map[string]model.Organization{},
		hours:         map[string]map[time.Weekday]model.DayHours{},
		services:      map[string]model.Service{},
		professionals: map[string]model.Professional{},
		customers:     map[string]model.Customer{},
		appointments:  map[string]model.Appointment{},
		keys:          map[string]string{},
		now:           time.Now,
	}
}

// FailEvents makes every later EnqueueEvent fail.
func (s *Store) FailEvents(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEvents = fail
}

func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}

// Appointments returns every stored appointment ordered by start.
func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a)
	}
	sortAppointments(out)
	return out
}

func (s *Store) Customers() []model.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Transient("the request took too long, please try again", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &tx{
		store:        s,
		customers:    clone(s.customers),
		appointments: clone(s.appointments),
		keys:         clone(s.keys),
	}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	s.customers = staged.customers
	s.appointments = staged.appointments
	s.keys = staged.keys
	s.events = append(s.events, staged.events...)
	return nil
}

func (s *Store) OrganizationBySlug(_ context.Context, slug string) (model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return model.Organization{}, apperr.ErrOrganizationNotFound
}

func (s *Store) OrganizationByID(_ context.Context, id string) (model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return model.Organization{}, apperr.ErrOrganizationNotFound
	}
	return o, nil
}

func (s *Store) CreateOrganization(_ context.Context, org model.Organization) (model.Organization, error) {
	if org.SlotStepMinutes <= 0 {
		org.SlotStepMinutes = model.DefaultSlotStepMinutes
	}
	if org.Timezone == "" {
		org.Timezone = "UTC"
	}
	if err := org.Validate(); err != nil {
		return model.Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.Slug == org.Slug {
			return model.Organization{}, apperr.Conflict("duplicate", "a record with the same key already exists")
		}
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	org.CreatedAt = s.now()
	s.orgs[org.ID] = org
	week := map[time.Weekday]model.DayHours{}
	for day := time.Sunday; day <= time.Saturday; day++ {
		week[day] = model.DefaultDayHours(day)
	}
	s.hours[org.ID] = week
	return org, nil
}

func (s *Store) UpdateOrganization(_ context.Context, org model.Organization) (model.Organization, error) {
	if org.SlotStepMinutes <= 0 {
		org.SlotStepMinutes = model.DefaultSlotStepMinutes
	}
	if err := org.Validate(); err != nil {
		return model.Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orgs[org.ID]
	if !ok {
		return model.Organization{}, apperr.ErrOrganizationNotFound
	}
	cur.Name = org.Name
	cur.Timezone = org.Timezone
	cur.WhatsAppNumber = org.WhatsAppNumber
	cur.LogoURL = org.LogoURL
	cur.SlotStepMinutes = org.SlotStepMinutes
	s.orgs[org.ID] = cur
	return cur, nil
}

func (s *Store) DayHours(_ context.Context, organizationID string, day time.Weekday) (model.DayHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.hours[organizationID][day]; ok {
		return h, nil
	}
	return model.DefaultDayHours(day), nil
}

func (s *Store) ListHours(ctx context.Context, organizationID string) ([]model.DayHours, error) {
	week := make([]model.DayHours, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		h, err := s.DayHours(ctx, organizationID, day)
		if err != nil {
			return nil, err
		}
		week[day] = h
	}
	return week, nil
}

func (s *Store) ReplaceHours(_ context.Context, organizationID string, week []model.DayHours) error {
	if err := model.ValidateWeek(week); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[organizationID]; !ok {
		return apperr.ErrOrganizationNotFound
	}
	if s.hours[organizationID] == nil {
		s.hours[organizationID] = map[time.Weekday]model.DayHours{}
	}
	for _, h := range week {
		s.hours[organizationID][h.Weekday] = h
	}
	return nil
}

func (s *Store) ServiceByID(_ context.Context, organizationID, serviceID string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[serviceID]
	if !ok || svc.OrganizationID != organizationID {
		return model.Service{}, apperr.ErrServiceNotFound
	}
	return svc, nil
}

func (s *Store) ListServices(_ context.Context, organizationID string, includeInactive bool) ([]model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Service{}
	for _, svc := range s.services {
		if svc.OrganizationID == organizationID && (svc.IsActive || includeInactive) {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateService(_ context.Context, svc model.Service) (model.Service, error) {
	if err := svc.Validate(); err != nil {
		return model.Service{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[svc.OrganizationID]; !ok {
		return model.Service{}, apperr.ErrOrganizationNotFound
	}
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	svc.Name = strings.TrimSpace(svc.Name)
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) UpdateService(_ context.Context, svc model.Service) (model.Service, error) {
	if err := svc.Validate(); err != nil {
		return model.Service{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.services[svc.ID]
	if !ok || cur.OrganizationID != svc.OrganizationID {
		return model.Service{}, apperr.ErrServiceNotFound
	}
	svc.Name = strings.TrimSpace(svc.Name)
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) ListProfessionals(_ context.Context, organizationID string) ([]model.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProfessionals(s.professionals, organizationID), nil
}

func (s *Store) ProfessionalByID(_ context.Context, organizationID, id string) (model.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.professionals[id]
	if !ok || p.OrganizationID != organizationID {
		return model.Professional{}, apperr.ErrProfessionalNotFound
	}
	return p, nil
}

func (s *Store) CreateProfessional(_ context.Context, p model.Professional) (model.Professional, error) {
	if err := p.Validate(); err != nil {
		return model.Professional{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[p.OrganizationID]; !ok {
		return model.Professional{}, apperr.ErrOrganizationNotFound
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ColorCode == "" {
		p.ColorCode = "#3b82f6"
	}
	p.Name = strings.TrimSpace(p.Name)
	s.professionals[p.ID] = p
	return p, nil
}

func (s *Store) ListOccupying(_ context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return occupying(s.appointments, organizationID, professional, start, end), nil
}

func (s *Store) Agenda(_ context.Context, organizationID string, start, end time.Time) ([]model.AgendaEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AgendaEntry
	for _, a := range s.appointments {
		if a.OrganizationID == organizationID && !a.StartTime.Before(start) && a.StartTime.Before(end) {
			out = append(out, s.agendaEntry(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ProfessionalName < out[j].ProfessionalName
	})
	return out, nil
}

func (s *Store) ListCustomers(_ context.Context, organizationID string) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Customer{}
	for _, c := range s.customers {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CustomerByID(_ context.Context, organizationID, id string) (model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok || c.OrganizationID != organizationID {
		return model.Customer{}, apperr.ErrCustomerNotFound
	}
	return c, nil
}

func (s *Store) UpdateCustomerNotes(_ context.Context, organizationID, id, notes string) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok || c.OrganizationID != organizationID {
		return model.Customer{}, apperr.ErrCustomerNotFound
	}
	c.InternalNotes = notes
	s.customers[id] = c
	return c, nil
}

func (s *Store) CustomerHistory(_ context.Context, organizationID, customerID string) ([]model.AgendaEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AgendaEntry
	for _, a := range s.appointments {
		if a.OrganizationID == organizationID && a.CustomerID == customerID {
			out = append(out, s.agendaEntry(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *Store) agendaEntry(a model.Appointment) model.AgendaEntry {
	c := s.customers[a.CustomerID]
	return model.AgendaEntry{
		Appointment:      a,
		CustomerName:     c.FullName,
		CustomerPhone:    c.WhatsAppNumber,
		ServiceName:      s.services[a.ServiceID].Name,
		ProfessionalName: s.professionals[a.ProfessionalID].Name,
	}
}

func occupying(appts map[string]model.Appointment, organizationID string, professional model.ProfessionalFilter, start, end time.Time) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if a.OrganizationID != organizationID || !a.Status.OccupiesSchedule() || !professional.Matches(a.ProfessionalID) {
			continue
		}
		if a.Overlaps(start, end) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out
}

func listProfessionals(all map[string]model.Professional, organizationID string) []model.Professional {
	out := []model.Professional{}
	for _, p := range all {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortAppointments(appts []model.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].StartTime.Equal(appts[j].StartTime) {
			return appts[i].StartTime.Before(appts[j].StartTime)
		}
		return appts[i].ID < appts[j].ID
	})
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
