package freeday

import (
	"context"
	"errors"
)

var (
	// ErrProfileNotFound means the user has no activated profile yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEntryNotFound means no history entry with that id belongs to the user.
	ErrEntryNotFound = errors.New("history entry not found")
	// ErrDraftNotFound means the user has no in-progress free-day log.
	ErrDraftNotFound = errors.New("draft not found")
)

// ProfileGateway reads and writes the profile owned by one identity.
type ProfileGateway interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, userID string, p Profile) (Profile, error)
}

// HistoryGateway stores week records. ListHistory returns newest first.
// UpdateHistory merges only the non-nil patch fields and returns
// ErrEntryNotFound when the id does not belong to userID. Serializing
// concurrent writes to one entry is the gateway's job.
type HistoryGateway interface {
	ListHistory(ctx context.Context, userID string) ([]WeekRecord, error)
	CountHistory(ctx context.Context, userID string) (int, error)
	GetHistory(ctx context.Context, userID, id string) (WeekRecord, error)
	AppendHistory(ctx context.Context, userID string, rec WeekRecord) (WeekRecord, error)
	UpdateHistory(ctx context.Context, userID, id string, patch WeekPatch) (WeekRecord, error)
}

// DraftGateway holds at most one in-progress free-day log per user.
type DraftGateway interface {
	LoadDraft(ctx context.Context, userID string) (MealsData, error)
	SaveDraft(ctx context.Context, userID string, m MealsData) error
	ClearDraft(ctx context.Context, userID string) error
}
