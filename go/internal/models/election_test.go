package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCountdown(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want Countdown
	}{
		{name: "negative", in: -time.Second, want: Countdown{}},
		{name: "zero", in: 0, want: Countdown{}},
		{name: "three days", in: 72 * time.Hour, want: Countdown{Days: 3}},
		{
			name: "mixed",
			in:   26*time.Hour + 3*time.Minute + 4*time.Second + 900*time.Millisecond,
			want: Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewCountdown(tt.in))
		})
	}
}

func TestElectionWindowHasClosed(t *testing.T) {
	closesAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := ElectionWindow{ClosesAt: closesAt}

	assert.False(t, w.HasClosed(closesAt.Add(-time.Millisecond)))
	assert.True(t, w.HasClosed(closesAt))
	assert.True(t, w.HasClosed(closesAt.Add(time.Hour)))
}
