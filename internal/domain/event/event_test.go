package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingConfirmed_JSONフィールド名(t *testing.T) {
	e := BookingConfirmed{
		BookingID:     1,
		BookingNumber: "bn",
		ShowtimeID:    5,
		UserID:        "user-1",
		SeatIDs:       []int64{101, 102},
		TotalPrice:    30000,
		ConfirmedAt:   time.Date(2025, 12, 19, 19, 0, 0, 0, time.UTC),
	}

	body, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	for _, key := range []string{"bookingId", "bookingNumber", "showtimeId", "userId", "seatIds", "totalPrice", "confirmedAt"} {
		assert.Contains(t, m, key)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	ctx := context.Background()

	assert.NoError(t, p.PublishBookingConfirmed(ctx, BookingConfirmed{}))
	assert.NoError(t, p.PublishHoldReleased(ctx, HoldReleased{Reason: ReasonExpired}))
}
