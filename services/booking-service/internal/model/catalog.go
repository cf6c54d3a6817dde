package model

import "time"

type Service struct {
	ID              string
	OrganizationID  string
	Name            string
	Description     string
	DurationMinutes int
	Price           float64
	IsActive        bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Professional struct {
	ID             string
	OrganizationID string
	Name           string
	ColorCode      string
}

type Customer struct {
	ID             string
	OrganizationID string
	FullName       string
	WhatsAppNumber string
	InternalNotes  string
	CreatedAt      time.Time
}

// ProfessionalFilter selects either one professional or all professionals of
// an organization. The zero value means any.
type ProfessionalFilter struct {
	id string
}

func AnyProfessional() ProfessionalFilter {
	return ProfessionalFilter{}
}

func SpecificProfessional(id string) ProfessionalFilter {
	return ProfessionalFilter{id: id}
}

// ParseProfessionalFilter maps "" and "any" to AnyProfessional.
func ParseProfessionalFilter(raw string) ProfessionalFilter {
	switch raw {
	case "", "any", "ANY":
		return AnyProfessional()
	default:
		return SpecificProfessional(raw)
	}
}

func (f ProfessionalFilter) IsAny() bool { return f.id == "" }

func (f ProfessionalFilter) ID() (string, bool) { return f.id, f.id != "" }

func (f ProfessionalFilter) String() string {
	if f.IsAny() {
		return "any"
	}
	return f.id
}

func (f ProfessionalFilter) Matches(professionalID string) bool {
	return f.IsAny() || f.id == professionalID
}
