package notify

import (
	"testing"

	"tripvera/internal/events"

	"github.com/stretchr/testify/assert"
)

func TestRenderReservationEmail(t *testing.T) {
	payload := events.ReservationEventPayload{
		ReservationID: 555,
		ActivityTitle: "Night kayak tour",
		Date:          "2026-03-07",
		StartTime:     "10:00",
		EndTime:       "12:00",
		HeadCount:     3,
		TotalPrice:    90000,
	}

	tests := []struct {
		eventType   string
		wantSubject string
	}{
		{events.EventReservationCreated, "Reservation received: Night kayak tour"},
		{events.EventReservationConfirmed, "Reservation confirmed: Night kayak tour"},
		{events.EventReservationDeclined, "Reservation declined: Night kayak tour"},
		{events.EventReservationCanceled, "Reservation canceled: Night kayak tour"},
		{events.EventReservationCompleted, "How was it? Night kayak tour"},
		{"something_else", "Reservation update: Night kayak tour"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			subject, text, html := RenderReservationEmail(tt.eventType, payload)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Contains(t, text, "Reservation #555")
			assert.Contains(t, text, "2026-03-07 10:00-12:00")
			assert.Contains(t, html, "Night kayak tour")
		})
	}
}
