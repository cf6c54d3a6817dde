// Package draft models the customer-side booking wizard as a typed state
// machine: service, professional, slot, contact, then commit.
package draft

import (
	"fmt"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/model"
)

type Step int

const (
	StepStart Step = iota
	StepService
	StepProfessional
	StepSlot
	StepContact
	StepCommitted
)

var stepNames = [...]string{"start", "service", "professional", "slot", "contact", "committed"}

func (s Step) String() string {
	if s < StepStart || s > StepCommitted {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func ParseStep(raw string) (Step, bool) {
	for i, name := range stepNames {
		if name == raw {
			return Step(i), true
		}
	}
	return 0, false
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	v, ok := ParseStep(string(b))
	if !ok {
		return fmt.Errorf("unknown draft step %q", b)
	}
	*s = v
	return nil
}

type ServiceChoice struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

func (c ServiceChoice) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// ProfessionalChoice is either a concrete professional or Any.
type ProfessionalChoice struct {
	Any  bool   `json:"any"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (c ProfessionalChoice) Filter() model.ProfessionalFilter {
	if c.Any || c.ID == "" {
		return model.AnyProfessional()
	}
	return model.SpecificProfessional(c.ID)
}

type SlotChoice struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Contact struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type Draft struct {
	ID               string              `json:"id"`
	OrganizationSlug string              `json:"organization_slug"`
	Service          *ServiceChoice      `json:"service,omitempty"`
	Professional     *ProfessionalChoice `json:"professional,omitempty"`
	Slot             *SlotChoice         `json:"slot,omitempty"`
	Contact          *Contact            `json:"contact,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// RedirectError sends the client back to the first step it skipped.
type RedirectError struct {
	Requested Step
	To        Step
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("cannot enter %s before %s", e.Requested, e.To)
}

func (d Draft) filled(s Step) bool {
	switch s {
	case StepService:
		return d.Service != nil && d.Service.DurationMinutes > 0
	case StepProfessional:
		return d.Professional != nil
	case StepSlot:
		return d.Slot != nil && !d.Slot.Start.IsZero()
	case StepContact:
		return d.Contact != nil && d.Contact.FullName != "" && d.Contact.Phone != ""
	default:
		return true
	}
}

// Guard reports whether step may be entered: every earlier step must be
// filled. It returns a *RedirectError naming the first one that is not.
func (d Draft) Guard(step Step) error {
	for s := StepService; s < step && s < StepCommitted; s++ {
		if !d.filled(s) {
			return &RedirectError{Requested: step, To: s}
		}
	}
	return nil
}

// CurrentStep is the furthest step whose whole chain is filled.
func (d Draft) CurrentStep() Step {
	cur := StepStart
	for s := StepService; s < StepCommitted; s++ {
		if !d.filled(s) {
			break
		}
		cur = s
	}
	return cur
}

// NextStep is the step the wizard should show.
func (d Draft) NextStep() Step {
	return d.CurrentStep() + 1
}

// withService replaces the service; a chosen slot keeps its start and is
// re-derived from the new duration.
func (d Draft) withService(c ServiceChoice) Draft {
	d.Service = &c
	if d.Slot != nil {
		slot := SlotChoice{Start: d.Slot.Start, End: d.Slot.Start.Add(c.Duration())}
		d.Slot = &slot
	}
	return d
}

func (d Draft) withProfessional(c ProfessionalChoice) Draft {
	d.Professional = &c
	return d
}

func (d Draft) withSlot(start time.Time) Draft {
	d.Slot = &SlotChoice{Start: start, End: start.Add(d.Service.Duration())}
	return d
}

func (d Draft) withContact(c Contact) Draft {
	d.Contact = &c
	return d
}

// Receipt is the read-only summary shown after a successful commit.
type Receipt struct {
	AppointmentID    string    `json:"appointment_id"`
	OrganizationSlug string    `json:"organization_slug"`
	OrganizationName string    `json:"organization_name"`
	ServiceName      string    `json:"service_name"`
	ProfessionalName string    `json:"professional_name"`
	CustomerName     string    `json:"customer_name"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Status           string    `json:"status"`
}
