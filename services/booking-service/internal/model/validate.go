package model

import (
	"strings"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

func (o Organization) Validate() error {
	switch {
	case strings.TrimSpace(o.Name) == "":
		return apperr.Validation("missing_name", "organization name is required")
	case o.SlotStepMinutes < 0 || o.SlotStepMinutes > 24*60:
		return apperr.Validation("invalid_slot_step", "slot step must be between 1 and 1440 minutes")
	}
	if _, err := time.LoadLocation(o.Timezone); err != nil || o.Timezone == "" {
		return apperr.Validation("invalid_timezone", "unknown timezone")
	}
	return nil
}

func (s Service) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return apperr.Validation("missing_name", "service name is required")
	case s.DurationMinutes <= 0:
		return apperr.Validation("invalid_duration", "duration must be positive")
	case s.Price < 0:
		return apperr.Validation("invalid_price", "price cannot be negative")
	}
	return nil
}

func (p Professional) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("missing_name", "professional name is required")
	}
	return nil
}

func ValidateWeek(week []DayHours) error {
	if len(week) == 0 {
		return apperr.Validation("invalid_hours", "at least one weekday is required")
	}
	for _, h := range week {
		if !h.Valid() {
			return apperr.Validation("invalid_hours", "opening time must be before closing time")
		}
	}
	return nil
}
