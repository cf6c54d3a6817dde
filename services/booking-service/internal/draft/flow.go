package draft

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/metrics"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

type Catalog interface {
	OrganizationBySlug(ctx context.Context, slug string) (model.Organization, error)
	ServiceByID(ctx context.Context, organizationID, serviceID string) (model.Service, error)
	ProfessionalByID(ctx context.Context, organizationID, id string) (model.Professional, error)
}

type SlotFinder interface {
	ComputeSlots(ctx context.Context, q availability.Query) (availability.Result, error)
}

type Booker interface {
	Commit(ctx context.Context, req booking.Request) (booking.Confirmation, error)
}

var ErrSlotUnavailable = apperr.Conflict("slot_unavailable", "that time is no longer available, please choose another slot")

// Flow drives drafts through the wizard. Every failed step leaves the stored
// draft exactly as it was.
type Flow struct {
	store   Store
	catalog Catalog
	slots   SlotFinder
	booker  Booker
	logger  *slog.Logger
	now     func() time.Time
}

func NewFlow(store Store, catalog Catalog, slots SlotFinder, booker Booker, logger *slog.Logger, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	return &Flow{store: store, catalog: catalog, slots: slots, booker: booker, logger: logger, now: now}
}

func (f *Flow) Start(ctx context.Context, slug string) (Draft, error) {
	if _, err := f.catalog.OrganizationBySlug(ctx, slug); err != nil {
		return Draft{}, err
	}
	now := f.now()
	d := Draft{ID: uuid.NewString(), OrganizationSlug: slug, CreatedAt: now, UpdatedAt: now}
	if err := f.store.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Get returns the draft only when it belongs to slug.
func (f *Flow) Get(ctx context.Context, slug, id string) (Draft, error) {
	if id == "" {
		return Draft{}, apperr.ErrDraftNotFound
	}
	d, err := f.store.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d.OrganizationSlug != slug {
		return Draft{}, apperr.ErrDraftNotFound
	}
	return d, nil
}

func (f *Flow) SelectService(ctx context.Context, slug, id, serviceID string) (Draft, error) {
	return f.step(ctx, StepService, slug, id, func(d Draft, org model.Organization) (Draft, error) {
		svc, err := f.catalog.ServiceByID(ctx, org.ID, strings.TrimSpace(serviceID))
		if err != nil {
			return Draft{}, err
		}
		if !svc.IsActive {
			return Draft{}, apperr.ErrServiceNotFound
		}
		return d.withService(ServiceChoice{
			ID:              svc.ID,
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
			Price:           svc.Price,
		}), nil
	})
}

// SelectProfessional accepts a professional id, or "" / "any".
func (f *Flow) SelectProfessional(ctx context.Context, slug, id, professionalID string) (Draft, error) {
	return f.step(ctx, StepProfessional, slug, id, func(d Draft, org model.Organization) (Draft, error) {
		filter := model.ParseProfessionalFilter(strings.TrimSpace(professionalID))
		pid, specific := filter.ID()
		if !specific {
			return d.withProfessional(ProfessionalChoice{Any: true}), nil
		}
		p, err := f.catalog.ProfessionalByID(ctx, org.ID, pid)
		if err != nil {
			return Draft{}, err
		}
		return d.withProfessional(ProfessionalChoice{ID: p.ID, Name: p.Name}), nil
	})
}

// SelectSlot only accepts a start the availability engine currently offers.
func (f *Flow) SelectSlot(ctx context.Context, slug, id string, start time.Time) (Draft, error) {
	return f.step(ctx, StepSlot, slug, id, func(d Draft, org model.Organization) (Draft, error) {
		if start.IsZero() {
			return Draft{}, apperr.Validation("missing_slot", "please choose a time")
		}
		loc, _ := org.Location()
		res, err := f.slots.ComputeSlots(ctx, availability.Query{
			OrganizationSlug: slug,
			Date:             start.In(loc).Format(availability.DateLayout),
			ServiceID:        d.Service.ID,
			Professional:     d.Professional.Filter(),
		})
		if err != nil {
			return Draft{}, err
		}
		for _, s := range res.Slots {
			if s.Start.Equal(start) {
				return d.withSlot(s.Start.UTC()), nil
			}
		}
		return Draft{}, ErrSlotUnavailable
	})
}

func (f *Flow) ProvideContact(ctx context.Context, slug, id, fullName, phone string) (Draft, error) {
	return f.step(ctx, StepContact, slug, id, func(d Draft, _ model.Organization) (Draft, error) {
		name := strings.TrimSpace(fullName)
		if name == "" {
			return Draft{}, apperr.Validation("missing_name", "please tell us your name")
		}
		normalized, err := booking.NormalizePhone(phone)
		if err != nil {
			return Draft{}, err
		}
		return d.withContact(Contact{FullName: name, Phone: normalized}), nil
	})
}

// Commit books the draft. On success the draft is replaced by a receipt under
// the same id; on failure it is kept so the customer can pick another slot.
func (f *Flow) Commit(ctx context.Context, slug, id string) (Receipt, error) {
	d, err := f.Get(ctx, slug, id)
	if err != nil {
		return Receipt{}, err
	}
	if err := d.Guard(StepCommitted); err != nil {
		f.count(StepCommitted, err)
		return Receipt{}, err
	}
	conf, err := f.booker.Commit(ctx, booking.Request{
		OrganizationSlug: slug,
		CustomerName:     d.Contact.FullName,
		CustomerPhone:    d.Contact.Phone,
		ServiceID:        d.Service.ID,
		Professional:     d.Professional.Filter(),
		Start:            d.Slot.Start,
		End:              d.Slot.End,
	})
	f.count(StepCommitted, err)
	if err != nil {
		return Receipt{}, err
	}

	r := Receipt{
		AppointmentID:    conf.Appointment.ID,
		OrganizationSlug: conf.Organization.Slug,
		OrganizationName: conf.Organization.Name,
		ServiceName:      conf.Service.Name,
		ProfessionalName: conf.Professional.Name,
		CustomerName:     conf.Customer.FullName,
		Start:            conf.Appointment.StartTime,
		End:              conf.Appointment.EndTime,
		Status:           string(conf.Appointment.Status),
	}
	// The appointment exists from here on; session cleanup failures are only logged.
	if err := f.store.SaveReceipt(ctx, id, r); err != nil {
		f.logger.Warn("receipt not saved", "draft_id", id, "appointment_id", r.AppointmentID, "err", err)
	}
	if err := f.store.Delete(ctx, id); err != nil {
		f.logger.Warn("draft not deleted after commit", "draft_id", id, "err", err)
	}
	return r, nil
}

func (f *Flow) Receipt(ctx context.Context, slug, id string) (Receipt, error) {
	if id == "" {
		return Receipt{}, ErrReceiptNotFound
	}
	r, err := f.store.Receipt(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	if r.OrganizationSlug != slug {
		return Receipt{}, ErrReceiptNotFound
	}
	return r, nil
}

func (f *Flow) step(ctx context.Context, step Step, slug, id string, apply func(Draft, model.Organization) (Draft, error)) (Draft, error) {
	d, err := f.Get(ctx, slug, id)
	if err != nil {
		return Draft{}, err
	}
	if err := d.Guard(step); err != nil {
		f.count(step, err)
		return Draft{}, err
	}
	org, err := f.catalog.OrganizationBySlug(ctx, slug)
	if err != nil {
		return Draft{}, err
	}
	next, err := apply(d, org)
	f.count(step, err)
	if err != nil {
		return Draft{}, err
	}
	next.UpdatedAt = f.now()
	if err := f.store.Save(ctx, next); err != nil {
		return Draft{}, err
	}
	return next, nil
}

func (f *Flow) count(step Step, err error) {
	outcome := "entered"
	var redirect *RedirectError
	switch {
	case errors.As(err, &redirect):
		outcome = "redirected"
	case err != nil:
		outcome = "rejected"
	}
	metrics.DraftTransitions.WithLabelValues(step.String(), outcome).Inc()
}
