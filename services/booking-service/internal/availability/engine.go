package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const DateLayout = "2006-01-02"

// Store is the read side the engine needs. Implementations report missing rows
// as apperr NotFound and data access failures as apperr Transient.
type Store interface {
	OrganizationBySlug(ctx context.Context, slug string) (model.Organization, error)
	ServiceByID(ctx context.Context, organizationID, serviceID string) (model.Service, error)
	ProfessionalByID(ctx context.Context, organizationID, id string) (model.Professional, error)
	DayHours(ctx context.Context, organizationID string, day time.Weekday) (model.DayHours, error)
	ListOccupying(ctx context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error)
}

type Query struct {
	OrganizationSlug string
	Date             string // YYYY-MM-DD in the organization's timezone
	// ServiceID wins over Duration when both are set.
	ServiceID    string
	Duration     time.Duration
	Professional model.ProfessionalFilter
}

type Result struct {
	Organization model.Organization
	Date         string
	Duration     time.Duration
	Slots        []Slot
}

type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 50 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}

type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	retry  RetryPolicy
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

func NewEngine(store Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
		retry:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeSlots returns the bookable slots of one day, ascending. A closed day
// yields an empty result. It never writes.
func (e *Engine) ComputeSlots(ctx context.Context, q Query) (Result, error) {
	org, err := e.store.OrganizationBySlug(ctx, strings.TrimSpace(q.OrganizationSlug))
	if err != nil {
		return Result{}, err
	}
	loc := e.location(org)

	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(q.Date), loc)
	if err != nil {
		return Result{}, apperr.Validation("invalid_date", "date must look like 2026-01-31")
	}

	duration, err := e.resolveDuration(ctx, org, q)
	if err != nil {
		return Result{}, err
	}

	if id, ok := q.Professional.ID(); ok {
		if _, err := e.store.ProfessionalByID(ctx, org.ID, id); err != nil {
			return Result{}, err
		}
	}

	res := Result{Organization: org, Date: day.Format(DateLayout), Duration: duration, Slots: []Slot{}}

	hours, err := e.store.DayHours(ctx, org.ID, day.Weekday())
	if err != nil {
		return Result{}, err
	}
	windowStart, windowEnd, open := hours.Window(day, loc)
	if !open {
		return res, nil
	}

	appts, err := e.listOccupying(ctx, org.ID, q.Professional, windowStart, windowEnd)
	if err != nil {
		return Result{}, err
	}

	for _, start := range AvailableSlots(windowStart, windowEnd, duration, org.SlotStep(), BusyIntervals(appts), e.now()) {
		res.Slots = append(res.Slots, Slot{Start: start, End: start.Add(duration)})
	}
	return res, nil
}

func (e *Engine) location(org model.Organization) *time.Location {
	loc, ok := org.Location()
	if !ok && org.Timezone != "" {
		e.logger.Warn("unknown organization timezone, using UTC", "organization_id", org.ID, "timezone", org.Timezone)
	}
	return loc
}

func (e *Engine) resolveDuration(ctx context.Context, org model.Organization, q Query) (time.Duration, error) {
	if id := strings.TrimSpace(q.ServiceID); id != "" {
		svc, err := e.store.ServiceByID(ctx, org.ID, id)
		if err != nil {
			return 0, err
		}
		if !svc.IsActive {
			return 0, apperr.ErrServiceNotFound
		}
		if svc.DurationMinutes <= 0 {
			return 0, apperr.Validation("invalid_duration", "service duration must be positive")
		}
		return svc.Duration(), nil
	}
	if q.Duration <= 0 {
		return 0, apperr.Validation("invalid_duration", "service duration must be positive")
	}
	return q.Duration, nil
}

// listOccupying retries transient read failures with exponential backoff. Any
// other failure is returned on the first attempt.
func (e *Engine) listOccupying(ctx context.Context, orgID string, filter model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	attempt := 0
	op := func() ([]model.Appointment, error) {
		attempt++
		appts, err := e.store.ListOccupying(ctx, orgID, filter, start, end)
		if err == nil {
			return appts, nil
		}
		if !apperr.IsKind(err, apperr.KindTransient) {
			return nil, backoff.Permanent(err)
		}
		e.logger.Warn("availability read failed", "organization_id", orgID, "attempt", attempt, "err", err)
		return nil, err
	}

	policy := e.retry
	def := DefaultRetryPolicy()
	if policy.MaxTries == 0 {
		policy.MaxTries = 1
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = def.InitialInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	appts, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(policy.MaxTries))
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Transient("could not load the schedule, please try again", fmt.Errorf("list appointments: %w", err))
	}
	return appts, nil
}
