package notify

import (
	"fmt"

	"tripvera/internal/events"
)

// RenderReservationEmail builds the subject, plain-text and HTML parts of a
// reservation lifecycle email.
func RenderReservationEmail(eventType string, p events.ReservationEventPayload) (subject, text, html string) {
	var headline string
	switch eventType {
	case events.EventReservationCreated:
		subject = fmt.Sprintf("Reservation received: %s", p.ActivityTitle)
		headline = "We received your reservation"
	case events.EventReservationConfirmed:
		subject = fmt.Sprintf("Reservation confirmed: %s", p.ActivityTitle)
		headline = "Your reservation is confirmed"
	case events.EventReservationDeclined:
		subject = fmt.Sprintf("Reservation declined: %s", p.ActivityTitle)
		headline = "Your reservation was declined"
	case events.EventReservationCanceled:
		subject = fmt.Sprintf("Reservation canceled: %s", p.ActivityTitle)
		headline = "Your reservation was canceled"
	case events.EventReservationCompleted:
		subject = fmt.Sprintf("How was it? %s", p.ActivityTitle)
		headline = "Your activity is completed"
	default:
		subject = fmt.Sprintf("Reservation update: %s", p.ActivityTitle)
		headline = "Your reservation was updated"
	}

	details := fmt.Sprintf("%s %s-%s, %d person(s), total %d",
		p.Date, p.StartTime, p.EndTime, p.HeadCount, p.TotalPrice)

	text = fmt.Sprintf("%s\n\n%s\n%s\nReservation #%d",
		headline, p.ActivityTitle, details, p.ReservationID)

	html = fmt.Sprintf(`
		<h2>%s</h2>
		<p><strong>%s</strong></p>
		<p>%s</p>
		<p>Reservation #%d</p>
	`, headline, p.ActivityTitle, details, p.ReservationID)

	return subject, text, html
}
