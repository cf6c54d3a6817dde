package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/turnly/turnly/libs/whatsapp"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/metrics"
	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
)

type Request struct {
	OrganizationSlug string
	CustomerName     string
	CustomerPhone    string
	ServiceID        string
	Professional     model.ProfessionalFilter
	Start            time.Time
	// End is optional. When set it must equal Start plus the service duration.
	End time.Time
	// IdempotencyKey makes client retries safe: a second commit with the same
	// key returns the first appointment instead of booking again.
	IdempotencyKey string
}

type Confirmation struct {
	Appointment  model.Appointment
	Organization model.Organization
	Service      model.Service
	Professional model.Professional
	Customer     model.Customer
	Replayed     bool
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// Commit books one slot. The customer upsert, the overlap re-check, the insert
// and the notification event share one transaction. Storage errors are
// returned as they are: a Transient failure is never retried here because the
// slot has to be re-checked by a fresh availability query first.
func (s *Service) Commit(ctx context.Context, req Request) (Confirmation, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return Confirmation{}, apperr.Validation("missing_name", "please tell us your name")
	}
	phone, err := NormalizePhone(req.CustomerPhone)
	if err != nil {
		return Confirmation{}, err
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		return Confirmation{}, apperr.Validation("missing_service", "please choose a service")
	}
	if req.Start.IsZero() {
		return Confirmation{}, apperr.Validation("missing_slot", "please choose a time")
	}

	org, err := s.store.OrganizationBySlug(ctx, req.OrganizationSlug)
	if err != nil {
		return Confirmation{}, err
	}
	svc, err := s.store.ServiceByID(ctx, org.ID, strings.TrimSpace(req.ServiceID))
	if err != nil {
		return Confirmation{}, err
	}
	if !svc.IsActive {
		return Confirmation{}, apperr.ErrServiceNotFound
	}
	if svc.DurationMinutes <= 0 {
		return Confirmation{}, apperr.Validation("invalid_duration", "service duration must be positive")
	}

	start := req.Start.UTC()
	end := start.Add(svc.Duration())
	if !req.End.IsZero() && !req.End.Equal(end) {
		return Confirmation{}, apperr.Validation("slot_mismatch", "the selected time does not match the service length, please pick the slot again")
	}
	if start.Before(s.now()) {
		return Confirmation{}, apperr.Validation("slot_in_past", "that time has already passed, please choose another slot")
	}
	if err := s.checkOpeningHours(ctx, org, start, end); err != nil {
		return Confirmation{}, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	conf := Confirmation{Organization: org, Service: svc}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if key != "" {
			prior, err := tx.ClaimIdempotencyKey(ctx, org.ID, key)
			if err != nil {
				return err
			}
			if prior != "" {
				return s.replay(ctx, tx, &conf, prior, start, req.Professional)
			}
		}
		customer, err := tx.UpsertCustomer(ctx, org.ID, name, phone)
		if err != nil {
			return err
		}
		prof, err := s.pickProfessional(ctx, tx, org.ID, req.Professional, start, end)
		if err != nil {
			return err
		}
		appt, err := tx.InsertAppointment(ctx, model.Appointment{
			OrganizationID: org.ID,
			CustomerID:     customer.ID,
			ServiceID:      svc.ID,
			ProfessionalID: prof.ID,
			StartTime:      start,
			EndTime:        end,
			Status:         model.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		if key != "" {
			if err := tx.FinalizeIdempotencyKey(ctx, org.ID, key, appt.ID); err != nil {
				return err
			}
		}
		s.enqueueConfirmation(ctx, tx, org, appt, customer)

		conf.Appointment, conf.Professional, conf.Customer = appt, prof, customer
		return nil
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			metrics.BookingConflicts.Inc()
			s.logger.Info("booking conflict", "organization_id", org.ID, "start", start, "professional", req.Professional.String())
		}
		return Confirmation{}, err
	}

	if conf.Replayed {
		s.logger.Info("booking replayed", "organization_id", org.ID, "appointment_id", conf.Appointment.ID)
		return conf, nil
	}

	mode := "specific"
	if req.Professional.IsAny() {
		mode = "any"
	}
	metrics.BookingsCommitted.WithLabelValues(mode).Inc()
	s.logger.Info("appointment booked",
		"organization_id", org.ID,
		"appointment_id", conf.Appointment.ID,
		"professional_id", conf.Professional.ID,
		"start", start,
	)
	return conf, nil
}

// replay fills conf from the appointment an earlier commit with the same
// idempotency key created. The key only replays the same booking: service,
// start and, when one was named, professional must match.
func (s *Service) replay(ctx context.Context, tx Tx, conf *Confirmation, appointmentID string, start time.Time, filter model.ProfessionalFilter) error {
	orgID := conf.Organization.ID
	appt, err := tx.AppointmentForUpdate(ctx, orgID, appointmentID)
	if err != nil {
		return err
	}
	if appt.ServiceID != conf.Service.ID || !appt.StartTime.Equal(start) || !filter.Matches(appt.ProfessionalID) {
		return apperr.Conflict("idempotency_key_reused", "this request key was already used for a different booking")
	}
	customer, err := tx.CustomerByID(ctx, orgID, appt.CustomerID)
	if err != nil {
		return err
	}
	prof, err := tx.ProfessionalByID(ctx, orgID, appt.ProfessionalID)
	if err != nil {
		return err
	}
	conf.Appointment, conf.Customer, conf.Professional, conf.Replayed = appt, customer, prof, true
	return nil
}

func (s *Service) checkOpeningHours(ctx context.Context, org model.Organization, start, end time.Time) error {
	loc, _ := org.Location()
	hours, err := s.store.DayHours(ctx, org.ID, start.In(loc).Weekday())
	if err != nil {
		return err
	}
	winStart, winEnd, ok := hours.Window(start, loc)
	if !ok || start.Before(winStart) || end.After(winEnd) {
		return apperr.Validation("outside_hours", "the selected time is outside opening hours")
	}
	// starts stay on the grid availability offers
	if start.Sub(winStart)%org.SlotStep() != 0 {
		return apperr.Validation("slot_off_grid", "the selected time is not one of the offered slots, please pick the slot again")
	}
	return nil
}

// pickProfessional re-checks the slot against the current appointment set. For
// any professional the slot must be free across the whole organization, the
// same rule availability applies, and the first professional by name takes it.
func (s *Service) pickProfessional(ctx context.Context, tx Tx, orgID string, filter model.ProfessionalFilter, start, end time.Time) (model.Professional, error) {
	var prof model.Professional
	if id, ok := filter.ID(); ok {
		p, err := tx.ProfessionalByID(ctx, orgID, id)
		if err != nil {
			return model.Professional{}, err
		}
		prof = p
	} else {
		profs, err := tx.ListProfessionals(ctx, orgID)
		if err != nil {
			return model.Professional{}, err
		}
		if len(profs) == 0 {
			return model.Professional{}, apperr.Validation("no_professionals", "this business has no professionals to book with yet")
		}
		prof = profs[0]
	}

	busy, err := tx.ListOccupying(ctx, orgID, filter, start, end)
	if err != nil {
		return model.Professional{}, err
	}
	if len(busy) > 0 {
		return model.Professional{}, apperr.ErrSlotTaken
	}
	return prof, nil
}

func (s *Service) enqueueConfirmation(ctx context.Context, tx Tx, org model.Organization, appt model.Appointment, customer model.Customer) {
	loc, _ := org.Location()
	evt, err := outbox.NewConfirmationEvent(outbox.ConfirmationPayload{
		AppointmentID:  appt.ID,
		OrganizationID: org.ID,
		RecipientPhone: customer.WhatsAppNumber,
		MessageText:    whatsapp.ConfirmationText(org.Name, appt.StartTime, loc),
		StartTime:      appt.StartTime,
	})
	if err == nil {
		err = tx.EnqueueEvent(ctx, evt)
	}
	if err != nil {
		s.logger.Error("confirmation notification not queued", "appointment_id", appt.ID, "err", err)
	}
}

// UpdateStatus applies a staff status change. Re-applying the current status
// is a no-op; a move the transition graph forbids is a Conflict.
func (s *Service) UpdateStatus(ctx context.Context, organizationID, appointmentID string, next model.Status) (model.Appointment, error) {
	var out model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.AppointmentForUpdate(ctx, organizationID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status == next {
			out = appt
			return nil
		}
		if !appt.Status.CanTransitionTo(next) {
			return apperr.Conflict("invalid_transition", fmt.Sprintf("a %s appointment cannot be marked %s", appt.Status, next))
		}
		out, err = tx.UpdateAppointmentStatus(ctx, organizationID, appointmentID, next)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	metrics.StatusChanges.WithLabelValues(string(next)).Inc()
	s.logger.Info("appointment status updated", "organization_id", organizationID, "appointment_id", appointmentID, "status", next)
	return out, nil
}
