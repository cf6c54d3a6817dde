package whatsapp

import (
	"fmt"
	"time"
)

// ConfirmationText is the message a customer receives once a booking is
// confirmed. start is rendered in the organization's location.
func ConfirmationText(orgName string, start time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)
	return fmt.Sprintf(
		"¡Hola! Tu reserva en *%s* ha sido confirmada.\n\nFecha: %s\nHora: %s\n\nTe esperamos. Si necesitas cancelar o reprogramar, avísanos con tiempo.",
		orgName, local.Format("02/01/2006"), local.Format("15:04"),
	)
}
