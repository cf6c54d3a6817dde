package booking

import (
	"context"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
)

// Store is the storage the booking transaction runs against. Reads outside
// InTx see committed data only.
type Store interface {
	OrganizationBySlug(ctx context.Context, slug string) (model.Organization, error)
	OrganizationByID(ctx context.Context, id string) (model.Organization, error)
	ServiceByID(ctx context.Context, organizationID, serviceID string) (model.Service, error)
	DayHours(ctx context.Context, organizationID string, day time.Weekday) (model.DayHours, error)

	// InTx runs fn in one atomic unit: either everything fn wrote commits or
	// nothing does.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side available inside InTx. InsertAppointment reports an
// overlapping appointment of the same professional as apperr Conflict; this is
// the guarantee that holds across server instances.
type Tx interface {
	// ClaimIdempotencyKey locks key for the rest of the transaction and returns
	// the appointment a previous commit with the same key created, if any.
	ClaimIdempotencyKey(ctx context.Context, organizationID, key string) (appointmentID string, err error)
	FinalizeIdempotencyKey(ctx context.Context, organizationID, key, appointmentID string) error

	UpsertCustomer(ctx context.Context, organizationID, fullName, phone string) (model.Customer, error)
	CustomerByID(ctx context.Context, organizationID, id string) (model.Customer, error)
	ListProfessionals(ctx context.Context, organizationID string) ([]model.Professional, error)
	ProfessionalByID(ctx context.Context, organizationID, id string) (model.Professional, error)
	ListOccupying(ctx context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error)
	InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	AppointmentForUpdate(ctx context.Context, organizationID, id string) (model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, organizationID, id string, status model.Status) (model.Appointment, error)

	// EnqueueEvent writes to the outbox inside a savepoint: a failure here
	// leaves the surrounding transaction usable.
	EnqueueEvent(ctx context.Context, evt outbox.Event) error
}
