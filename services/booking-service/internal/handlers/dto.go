package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

type organizationDTO struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Timezone        string `json:"timezone"`
	WhatsAppNumber  string `json:"whatsapp_number,omitempty"`
	LogoURL         string `json:"logo_url,omitempty"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
}

func toOrganization(o model.Organization) organizationDTO {
	return organizationDTO{
		ID:              o.ID,
		Slug:            o.Slug,
		Name:            o.Name,
		Timezone:        o.Timezone,
		WhatsAppNumber:  o.WhatsAppNumber,
		LogoURL:         o.LogoURL,
		SlotStepMinutes: o.SlotStepMinutes,
	}
}

type serviceDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	IsActive        bool    `json:"is_active"`
}

func toService(s model.Service) serviceDTO {
	return serviceDTO{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		IsActive:        s.IsActive,
	}
}

func toServices(in []model.Service) []serviceDTO {
	out := make([]serviceDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toService(s))
	}
	return out
}

type professionalDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ColorCode string `json:"color_code"`
}

func toProfessional(p model.Professional) professionalDTO {
	return professionalDTO{ID: p.ID, Name: p.Name, ColorCode: p.ColorCode}
}

func toProfessionals(in []model.Professional) []professionalDTO {
	out := make([]professionalDTO, 0, len(in))
	for _, p := range in {
		out = append(out, toProfessional(p))
	}
	return out
}

type customerDTO struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	WhatsAppNumber string    `json:"whatsapp_number"`
	InternalNotes  string    `json:"internal_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCustomer(c model.Customer) customerDTO {
	return customerDTO{
		ID:             c.ID,
		FullName:       c.FullName,
		WhatsAppNumber: c.WhatsAppNumber,
		InternalNotes:  c.InternalNotes,
		CreatedAt:      c.CreatedAt,
	}
}

type appointmentDTO struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customer_id"`
	ServiceID        string    `json:"service_id"`
	ProfessionalID   string    `json:"professional_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Status           string    `json:"status"`
	CustomerName     string    `json:"customer_name,omitempty"`
	CustomerPhone    string    `json:"customer_phone,omitempty"`
	ServiceName      string    `json:"service_name,omitempty"`
	ProfessionalName string    `json:"professional_name,omitempty"`
}

func toAppointment(a model.Appointment, loc *time.Location) appointmentDTO {
	return appointmentDTO{
		ID:             a.ID,
		CustomerID:     a.CustomerID,
		ServiceID:      a.ServiceID,
		ProfessionalID: a.ProfessionalID,
		Start:          a.StartTime.In(loc),
		End:            a.EndTime.In(loc),
		Status:         string(a.Status),
	}
}

func toAgenda(in []model.AgendaEntry, loc *time.Location) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(in))
	for _, e := range in {
		dto := toAppointment(e.Appointment, loc)
		dto.CustomerName = e.CustomerName
		dto.CustomerPhone = e.CustomerPhone
		dto.ServiceName = e.ServiceName
		dto.ProfessionalName = e.ProfessionalName
		out = append(out, dto)
	}
	return out
}

type slotDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type slotsResponse struct {
	Date            string    `json:"date"`
	Timezone        string    `json:"timezone"`
	DurationMinutes int       `json:"duration_minutes"`
	Slots           []slotDTO `json:"slots"`
}

func toSlots(res availability.Result) slotsResponse {
	loc, _ := res.Organization.Location()
	out := slotsResponse{
		Date:            res.Date,
		Timezone:        loc.String(),
		DurationMinutes: int(res.Duration / time.Minute),
		Slots:           make([]slotDTO, 0, len(res.Slots)),
	}
	for _, s := range res.Slots {
		out.Slots = append(out.Slots, slotDTO{Start: s.Start.In(loc), End: s.End.In(loc)})
	}
	return out
}

type bookingResponse struct {
	Appointment  appointmentDTO  `json:"appointment"`
	Organization organizationDTO `json:"organization"`
	Service      serviceDTO      `json:"service"`
	Professional professionalDTO `json:"professional"`
	Customer     customerDTO     `json:"customer"`
}

func toBooking(c booking.Confirmation) bookingResponse {
	loc, _ := c.Organization.Location()
	return bookingResponse{
		Appointment:  toAppointment(c.Appointment, loc),
		Organization: toOrganization(c.Organization),
		Service:      toService(c.Service),
		Professional: toProfessional(c.Professional),
		Customer:     toCustomer(c.Customer),
	}
}

// dayHoursDTO carries opening times as "HH:MM" in the organization's zone.
type dayHoursDTO struct {
	Weekday int    `json:"weekday"`
	IsOpen  bool   `json:"is_open"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

func toDayHours(h model.DayHours) dayHoursDTO {
	return dayHoursDTO{
		Weekday: int(h.Weekday),
		IsOpen:  h.IsOpen,
		Open:    formatClock(h.OpenMinute),
		Close:   formatClock(h.CloseMinute),
	}
}

func (d dayHoursDTO) model() (model.DayHours, error) {
	if d.Weekday < 0 || d.Weekday > 6 {
		return model.DayHours{}, apperr.Validation("invalid_hours", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	h := model.DayHours{Weekday: time.Weekday(d.Weekday), IsOpen: d.IsOpen}
	var err error
	if h.OpenMinute, err = parseClock(d.Open); err != nil {
		return model.DayHours{}, err
	}
	if h.CloseMinute, err = parseClock(d.Close); err != nil {
		return model.DayHours{}, err
	}
	return h, nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// parseClock accepts "HH:MM" from 00:00 to 24:00.
func parseClock(raw string) (int, error) {
	invalid := apperr.Validation("invalid_hours", fmt.Sprintf("%q is not a valid time, use HH:MM", raw))
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, invalid
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, invalid
	}
	return h*60 + m, nil
}
