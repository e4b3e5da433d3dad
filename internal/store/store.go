// Package store implements the profile, history and draft gateways on
// Postgres (production) and SQLite (local runs and tests).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lg/free-day-go-api/internal/freeday"
)

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateWeek is returned when two records race for the same week number.
var ErrDuplicateWeek = errors.New("week number already recorded")

// Store is what both backends provide: the three gateways plus accounts.
type Store interface {
	freeday.ProfileGateway
	freeday.HistoryGateway
	freeday.DraftGateway
	FindOrCreateUser(ctx context.Context, id Identity) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)

// Open connects to the backend named by driver ("postgres" or "sqlite").
// dsn is the Postgres URL or the SQLite file path.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "postgres":
		s, err = NewPostgres(ctx, dsn)
	case "sqlite":
		s, err = NewSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// User is an account created on first OAuth login. Profile fields live on
// the same row but are exposed through the ProfileGateway methods.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	GoogleID    string    `json:"-"`
	IsActivated bool      `json:"is_activated"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is what the OAuth provider tells us about a user.
type Identity struct {
	GoogleID string
	Email    string
	Name     string
}

// profileColumns is the nullable profile part of a users row. A row whose
// user has not activated yet has every pointer nil.
type profileColumns struct {
	Weight        *float64
	Height        *float64
	Age           *int
	Sex           *string
	ActivityLevel *string
	WeeklyGoal    *float64
	IsActivated   bool
}

func (c profileColumns) toProfile() (freeday.Profile, error) {
	if !c.IsActivated || c.Weight == nil || c.Height == nil || c.Age == nil ||
		c.Sex == nil || c.ActivityLevel == nil || c.WeeklyGoal == nil {
		return freeday.Profile{}, freeday.ErrProfileNotFound
	}
	return freeday.Profile{
		WeightKG:      *c.Weight,
		HeightCM:      *c.Height,
		Age:           *c.Age,
		Sex:           freeday.Sex(*c.Sex),
		ActivityLevel: freeday.ActivityLevel(*c.ActivityLevel),
		WeeklyGoal:    freeday.WeeklyGoal(*c.WeeklyGoal),
	}, nil
}

// nullIfEmpty maps "" to a NULL column value.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeMeals(m freeday.MealsData) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode meals_data: %w", err)
	}
	return string(b), nil
}

func decodeMeals(raw []byte) (freeday.MealsData, error) {
	var m freeday.MealsData
	if len(raw) == 0 {
		return m.Normalize(), nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("decode meals_data: %w", err)
	}
	return m.Normalize(), nil
}

// patchArgs flattens a WeekPatch into nullable column values.
type patchArgs struct {
	TotalConsumed  *int
	Classification *string
	WeekQuality    *string
	MealsData      *string
	Emotion        *string
	Margin         *int
}

func flattenPatch(p freeday.WeekPatch) (patchArgs, error) {
	a := patchArgs{TotalConsumed: p.TotalConsumed, Emotion: p.Emotion, Margin: p.Margin}
	if p.Classification != nil {
		s := string(*p.Classification)
		a.Classification = &s
	}
	if p.WeekQuality != nil {
		s := string(*p.WeekQuality)
		a.WeekQuality = &s
	}
	if p.MealsData != nil {
		s, err := encodeMeals(*p.MealsData)
		if err != nil {
			return a, err
		}
		a.MealsData = &s
	}
	return a, nil
}
