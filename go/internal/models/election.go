package models

import "time"

// ElectionWindow bounds the span during which votes are accepted
type ElectionWindow struct {
	ClosesAt time.Time `json:"closes_at"`
}

// HasClosed reports whether the window is closed at now
func (w ElectionWindow) HasClosed(now time.Time) bool {
	return !now.Before(w.ClosesAt)
}

// Countdown is the time remaining until the election closes
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero reports whether no time remains
func (c Countdown) IsZero() bool {
	return c == Countdown{}
}

// NewCountdown splits d into whole days, hours, minutes and seconds.
// Non-positive durations yield the zero Countdown.
func NewCountdown(d time.Duration) Countdown {
	if d <= 0 {
		return Countdown{}
	}

	const day = 24 * time.Hour
	return Countdown{
		Days:    int(d / day),
		Hours:   int(d % day / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
		Seconds: int(d % time.Minute / time.Second),
	}
}

// GovernorState is the local rate limiting state of one voter
type GovernorState struct {
	LastVote          time.Time     `json:"last_vote,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
	LocalVoteCount    int           `json:"local_vote_count"`
}
