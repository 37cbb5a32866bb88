package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	now := time.Date(2025, 12, 19, 19, 0, 0, 0, time.UTC)
	live := now.Add(5 * time.Minute)
	past := now.Add(-time.Second)
	holdID := "h1"

	seats := []*Seat{
		{ID: 1, Zone: "FLOOR", Row: "1", Number: 1, Price: 15000, Status: StatusAvailable},
		{ID: 2, Zone: "FLOOR", Row: "1", Number: 2, Price: 15000, Status: StatusHeld, HoldID: &holdID, HoldExpiresAt: &live},
		{ID: 3, Zone: "FLOOR", Row: "1", Number: 3, Price: 15000, Status: StatusHeld, HoldID: &holdID, HoldExpiresAt: &past},
		{ID: 4, Zone: "FLOOR", Row: "1", Number: 4, Price: 15000, Status: StatusTaken},
	}

	got := Snapshot(seats, now)

	require.Len(t, got, 4)
	assert.Equal(t, StatusAvailable, got[0].Status)
	assert.Equal(t, StatusHeld, got[1].Status)
	assert.Equal(t, &live, got[1].HoldExpiresAt)
	assert.Equal(t, StatusAvailable, got[2].Status, "期限切れホールドは空席として見える")
	assert.Nil(t, got[2].HoldExpiresAt)
	assert.Equal(t, StatusTaken, got[3].Status)

	earliest, ok := EarliestHoldExpiry(got)
	assert.True(t, ok)
	assert.Equal(t, live, earliest)

	_, ok = EarliestHoldExpiry(got[:1])
	assert.False(t, ok)
}
