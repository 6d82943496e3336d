package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlotChannelName(t *testing.T) {
	now := time.Date(2024, time.September, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		owner    string
		duration string
		want     string
	}{
		{
			name:     "week",
			owner:    "Alice",
			duration: SlotDurationWeek,
			want:     "slot-alice-until-sep-8",
		},
		{
			name:     "month",
			owner:    "Alice",
			duration: SlotDurationMonth,
			want:     "slot-alice-until-oct-1",
		},
		{
			name:     "permanent",
			owner:    "Alice",
			duration: SlotDurationPermanent,
			want:     "slot-alice",
		},
		{
			name:     "owner name gets sanitized",
			owner:    "Bad Name!",
			duration: SlotDurationPermanent,
			want:     "slot-bad-name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, slotChannelName(tt.owner, tt.duration, now))
		})
	}
}
