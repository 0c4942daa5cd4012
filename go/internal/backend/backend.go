// Package backend is the voting client's view of the hosted backend: a vote table
// with a remote increment procedure, a key/value settings table and a row change feed.
package backend

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mcdev12/liveballot/go/internal/models"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("not found")

// ChangeHandler receives row change notifications. It must not block.
type ChangeHandler func(event models.ChangeEvent)

// Subscription is an active change feed registration
type Subscription interface {
	Unsubscribe() error
}

// VoteStore reads and writes the votes table
type VoteStore interface {
	ListVotes(ctx context.Context) ([]models.VoteRow, error)
	GetVote(ctx context.Context, candidateID int) (models.VoteRow, error)
	// IncrementVote runs the atomic increment procedure and returns the new count
	IncrementVote(ctx context.Context, candidateID int) (int, error)
	// UpdateVotes overwrites a candidate's count
	UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error)
}

// SettingsStore reads and writes the app_settings table
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (models.Setting, error)
	UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error)
}

// ChangeFeed delivers row change notifications per table
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, handler ChangeHandler) (Subscription, error)
}

// Backend is everything the voting client needs from the hosted service
type Backend interface {
	VoteStore
	SettingsStore
	ChangeFeed
}
