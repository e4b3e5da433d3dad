package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"lg/free-day-go-api/internal/freeday"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLite implements every gateway on a single-file database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite migrates the database at path to the latest schema and opens it.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	if err := MigrateSQLite(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// MigrateSQLite applies the embedded migrations with golang-migrate.
func MigrateSQLite(path string) error {
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Printf("[MigrateSQLite] schema up to date at %s", path)
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() { s.db.Close() }

// isUniqueViolation matches the extended UNIQUE code, falling back to the
// message when the connection only reports the primary constraint code.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

/* ─── Users ──────────────────────────────────────────────────────────── */

const sqliteUserColumns = `id, email, name, google_id, is_activated, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleID, &u.IsActivated, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return u, nil
}

func (s *SQLite) FindOrCreateUser(ctx context.Context, id Identity) (User, error) {
	now := s.now().UnixNano()
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, google_id, email, name, created_at, updated_at)
		 VALUES (@id, @googleID, @email, @name, @now, @now)
		 ON CONFLICT (google_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			updated_at = excluded.updated_at
		 RETURNING `+sqliteUserColumns,
		sql.Named("id", uuid.NewString()), sql.Named("googleID", id.GoogleID),
		sql.Named("email", id.Email), sql.Named("name", id.Name), sql.Named("now", now)))
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (s *SQLite) GetUser(ctx context.Context, userID string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = @userID`,
		sql.Named("userID", userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

/* ─── Profiles ───────────────────────────────────────────────────────── */

func scanProfile(row *sql.Row) (profileColumns, error) {
	var c profileColumns
	err := row.Scan(&c.Weight, &c.Height, &c.Age, &c.Sex, &c.ActivityLevel, &c.WeeklyGoal, &c.IsActivated)
	return c, err
}

func (s *SQLite) GetProfile(ctx context.Context, userID string) (freeday.Profile, error) {
	c, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT weight, height, age, sex, activity_level, weekly_goal, is_activated
		 FROM users WHERE id = @userID`,
		sql.Named("userID", userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return freeday.Profile{}, freeday.ErrProfileNotFound
	}
	if err != nil {
		return freeday.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return c.toProfile()
}

func (s *SQLite) SaveProfile(ctx context.Context, userID string, p freeday.Profile) (freeday.Profile, error) {
	c, err := scanProfile(s.db.QueryRowContext(ctx,
		`UPDATE users SET
			weight = @weight,
			height = @height,
			age = @age,
			sex = @sex,
			activity_level = @activityLevel,
			weekly_goal = @weeklyGoal,
			is_activated = 1,
			updated_at = @now
		 WHERE id = @userID
		 RETURNING weight, height, age, sex, activity_level, weekly_goal, is_activated`,
		sql.Named("userID", userID), sql.Named("weight", p.WeightKG), sql.Named("height", p.HeightCM),
		sql.Named("age", p.Age), sql.Named("sex", string(p.Sex)),
		sql.Named("activityLevel", string(p.ActivityLevel)), sql.Named("weeklyGoal", float64(p.WeeklyGoal)),
		sql.Named("now", s.now().UnixNano())))
	if errors.Is(err, sql.ErrNoRows) {
		return freeday.Profile{}, ErrUserNotFound
	}
	if err != nil {
		return freeday.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return c.toProfile()
}

/* ─── History ────────────────────────────────────────────────────────── */

const sqliteHistoryColumns = `id, week_number, date, total_consumed, margin,
	classification, emotion, week_quality, meals_data, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (freeday.WeekRecord, error) {
	var (
		r                    freeday.WeekRecord
		date, classification string
		emotion, quality     *string
		meals                []byte
		created              int64
	)
	if err := row.Scan(&r.ID, &r.WeekNumber, &date, &r.TotalConsumed, &r.Margin,
		&classification, &emotion, &quality, &meals, &created); err != nil {
		return r, err
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return r, fmt.Errorf("parse date %q: %w", date, err)
	}
	m, err := decodeMeals(meals)
	if err != nil {
		return r, err
	}
	r.Date = freeday.DateOnly{Time: d}
	r.Classification = freeday.Tier(classification)
	r.Emotion = deref(emotion)
	r.WeekQuality = freeday.WeekQuality(deref(quality))
	r.MealsData = m
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

func (s *SQLite) ListHistory(ctx context.Context, userID string) ([]freeday.WeekRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteHistoryColumns+` FROM week_history
		 WHERE user_id = @userID
		 ORDER BY created_at DESC, week_number DESC`,
		sql.Named("userID", userID))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []freeday.WeekRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) CountHistory(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM week_history WHERE user_id = @userID`,
		sql.Named("userID", userID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func (s *SQLite) GetHistory(ctx context.Context, userID, id string) (freeday.WeekRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteHistoryColumns+` FROM week_history WHERE id = @id AND user_id = @userID`,
		sql.Named("id", id), sql.Named("userID", userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return freeday.WeekRecord{}, freeday.ErrEntryNotFound
	}
	if err != nil {
		return freeday.WeekRecord{}, fmt.Errorf("get history entry: %w", err)
	}
	return rec, nil
}

func (s *SQLite) AppendHistory(ctx context.Context, userID string, rec freeday.WeekRecord) (freeday.WeekRecord, error) {
	meals, err := encodeMeals(rec.MealsData)
	if err != nil {
		return freeday.WeekRecord{}, err
	}
	saved, err := scanRecord(s.db.QueryRowContext(ctx,
		`INSERT INTO week_history
			(id, user_id, week_number, date, total_consumed, margin, classification, emotion, week_quality, meals_data, created_at)
		 VALUES (@id, @userID, @weekNumber, @date, @totalConsumed, @margin, @classification, @emotion, @weekQuality, @meals, @createdAt)
		 RETURNING `+sqliteHistoryColumns,
		sql.Named("id", uuid.NewString()), sql.Named("userID", userID),
		sql.Named("weekNumber", rec.WeekNumber), sql.Named("date", rec.Date.String()),
		sql.Named("totalConsumed", rec.TotalConsumed), sql.Named("margin", rec.Margin),
		sql.Named("classification", string(rec.Classification)),
		sql.Named("emotion", nullIfEmpty(rec.Emotion)),
		sql.Named("weekQuality", nullIfEmpty(string(rec.WeekQuality))),
		sql.Named("meals", meals), sql.Named("createdAt", s.now().UnixNano())))
	if isUniqueViolation(err) {
		return freeday.WeekRecord{}, ErrDuplicateWeek
	}
	if err != nil {
		return freeday.WeekRecord{}, fmt.Errorf("insert history: %w", err)
	}
	return saved, nil
}

func (s *SQLite) UpdateHistory(ctx context.Context, userID, id string, patch freeday.WeekPatch) (freeday.WeekRecord, error) {
	a, err := flattenPatch(patch)
	if err != nil {
		return freeday.WeekRecord{}, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`UPDATE week_history SET
			total_consumed = COALESCE(@totalConsumed, total_consumed),
			classification = COALESCE(@classification, classification),
			week_quality   = COALESCE(@weekQuality, week_quality),
			meals_data     = COALESCE(@meals, meals_data),
			emotion        = COALESCE(@emotion, emotion),
			margin         = COALESCE(@margin, margin)
		 WHERE id = @id AND user_id = @userID
		 RETURNING `+sqliteHistoryColumns,
		sql.Named("id", id), sql.Named("userID", userID),
		sql.Named("totalConsumed", a.TotalConsumed), sql.Named("classification", a.Classification),
		sql.Named("weekQuality", a.WeekQuality), sql.Named("meals", a.MealsData),
		sql.Named("emotion", a.Emotion), sql.Named("margin", a.Margin)))
	if errors.Is(err, sql.ErrNoRows) {
		return freeday.WeekRecord{}, freeday.ErrEntryNotFound
	}
	if err != nil {
		return freeday.WeekRecord{}, fmt.Errorf("update history: %w", err)
	}
	return rec, nil
}

/* ─── Drafts ─────────────────────────────────────────────────────────── */

func (s *SQLite) LoadDraft(ctx context.Context, userID string) (freeday.MealsData, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT meals_data FROM meal_drafts WHERE user_id = @userID`,
		sql.Named("userID", userID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return freeday.MealsData{}, freeday.ErrDraftNotFound
	}
	if err != nil {
		return freeday.MealsData{}, fmt.Errorf("load draft: %w", err)
	}
	return decodeMeals(raw)
}

func (s *SQLite) SaveDraft(ctx context.Context, userID string, m freeday.MealsData) error {
	meals, err := encodeMeals(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meal_drafts (user_id, meals_data, updated_at)
		 VALUES (@userID, @meals, @now)
		 ON CONFLICT (user_id) DO UPDATE SET meals_data = excluded.meals_data, updated_at = excluded.updated_at`,
		sql.Named("userID", userID), sql.Named("meals", meals), sql.Named("now", s.now().UnixNano()))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *SQLite) ClearDraft(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM meal_drafts WHERE user_id = @userID`,
		sql.Named("userID", userID)); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
