package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lg/free-day-go-api/internal/freeday"
)

// Postgres implements every gateway on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool. We use a pool (not a single conn)
// because Neon closes idle connections after ~5 minutes.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Ping checks the pool can reach the database.
func (s *Postgres) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Postgres) Close() { s.pool.Close() }

/* ─── Query helpers ──────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryOne] Query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("[queryOne] Scan error: %v", err)
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
	}
	return results, err
}

/* ─── Users ──────────────────────────────────────────────────────────── */

type pgUserRow struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	Name        string    `db:"name"`
	GoogleID    string    `db:"google_id"`
	IsActivated bool      `db:"is_activated"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r pgUserRow) user() User {
	return User(r)
}

const pgUserColumns = `id::text AS id, email, name, google_id, is_activated, created_at`

// FindOrCreateUser returns the user for a Google identity, creating it on
// first login. Email and name are refreshed on every login.
func (s *Postgres) FindOrCreateUser(ctx context.Context, id Identity) (User, error) {
	row, err := queryOne[pgUserRow](ctx, s.pool,
		`INSERT INTO users (google_id, email, name)
		 VALUES (@googleID, @email, @name)
		 ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			updated_at = now()
		 RETURNING `+pgUserColumns,
		pgx.NamedArgs{"googleID": id.GoogleID, "email": id.Email, "name": id.Name})
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return row.user(), nil
}

// GetUser loads a user by id.
func (s *Postgres) GetUser(ctx context.Context, userID string) (User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return User{}, ErrUserNotFound
	}
	row, err := queryOne[pgUserRow](ctx, s.pool,
		`SELECT `+pgUserColumns+` FROM users WHERE id = @userID`,
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return row.user(), nil
}

/* ─── Profiles ───────────────────────────────────────────────────────── */

type pgProfileRow struct {
	Weight        *float64 `db:"weight"`
	Height        *float64 `db:"height"`
	Age           *int     `db:"age"`
	Sex           *string  `db:"sex"`
	ActivityLevel *string  `db:"activity_level"`
	WeeklyGoal    *float64 `db:"weekly_goal"`
	IsActivated   bool     `db:"is_activated"`
}

const pgProfileColumns = `weight, height, age, sex, activity_level, weekly_goal, is_activated`

// GetProfile returns ErrProfileNotFound until the user has activated.
func (s *Postgres) GetProfile(ctx context.Context, userID string) (freeday.Profile, error) {
	row, err := queryOne[pgProfileRow](ctx, s.pool,
		`SELECT `+pgProfileColumns+` FROM users WHERE id = @userID`,
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return freeday.Profile{}, freeday.ErrProfileNotFound
	}
	if err != nil {
		return freeday.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profileColumns(row).toProfile()
}

// SaveProfile writes the profile and marks the account activated.
func (s *Postgres) SaveProfile(ctx context.Context, userID string, p freeday.Profile) (freeday.Profile, error) {
	row, err := queryOne[pgProfileRow](ctx, s.pool,
		`UPDATE users SET
			weight = @weight,
			height = @height,
			age = @age,
			sex = @sex,
			activity_level = @activityLevel,
			weekly_goal = @weeklyGoal,
			is_activated = true,
			updated_at = now()
		 WHERE id = @userID
		 RETURNING `+pgProfileColumns,
		pgx.NamedArgs{
			"userID": userID, "weight": p.WeightKG, "height": p.HeightCM, "age": p.Age,
			"sex": string(p.Sex), "activityLevel": string(p.ActivityLevel), "weeklyGoal": float64(p.WeeklyGoal),
		})
	if errors.Is(err, pgx.ErrNoRows) {
		return freeday.Profile{}, ErrUserNotFound
	}
	if err != nil {
		return freeday.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profileColumns(row).toProfile()
}

/* ─── History ────────────────────────────────────────────────────────── */

// pgHistoryRow is the scan shape of week_history; the response uses WeekRecord.
type pgHistoryRow struct {
	ID             string    `db:"id"`
	WeekNumber     int       `db:"week_number"`
	Date           time.Time `db:"date"`
	TotalConsumed  int       `db:"total_consumed"`
	Margin         int       `db:"margin"`
	Classification string    `db:"classification"`
	Emotion        *string   `db:"emotion"`
	WeekQuality    *string   `db:"week_quality"`
	MealsData      []byte    `db:"meals_data"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r pgHistoryRow) record() (freeday.WeekRecord, error) {
	meals, err := decodeMeals(r.MealsData)
	if err != nil {
		return freeday.WeekRecord{}, err
	}
	return freeday.WeekRecord{
		ID:             r.ID,
		WeekNumber:     r.WeekNumber,
		Date:           freeday.DateOnly{Time: r.Date},
		TotalConsumed:  r.TotalConsumed,
		Margin:         r.Margin,
		Classification: freeday.Tier(r.Classification),
		WeekQuality:    freeday.WeekQuality(deref(r.WeekQuality)),
		Emotion:        deref(r.Emotion),
		MealsData:      meals,
		CreatedAt:      r.CreatedAt,
	}, nil
}

const pgHistoryColumns = `id::text AS id, week_number, date, total_consumed, margin,
	classification, emotion, week_quality, meals_data::text AS meals_data, created_at`

func (s *Postgres) ListHistory(ctx context.Context, userID string) ([]freeday.WeekRecord, error) {
	rows, err := queryMany[pgHistoryRow](ctx, s.pool,
		`SELECT `+pgHistoryColumns+` FROM week_history
		 WHERE user_id = @userID
		 ORDER BY created_at DESC, week_number DESC`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]freeday.WeekRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Postgres) CountHistory(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM week_history WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func (s *Postgres) GetHistory(ctx context.Context, userID, id string) (freeday.WeekRecord, error) {
	// A malformed id would fail the uuid cast with a server error.
	if _, err := uuid.Parse(id); err != nil {
		return freeday.WeekRecord{}, freeday.ErrEntryNotFound
	}
	row, err := queryOne[pgHistoryRow](ctx, s.pool,
		`SELECT `+pgHistoryColumns+` FROM week_history WHERE id = @id AND user_id = @userID`,
		pgx.NamedArgs{"id": id, "userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return freeday.WeekRecord{}, freeday.ErrEntryNotFound
	}
	if err != nil {
		return freeday.WeekRecord{}, fmt.Errorf("get history entry: %w", err)
	}
	return row.record()
}

// AppendHistory inserts rec. The UNIQUE(user_id, week_number) constraint
// turns a lost race on the week number into ErrDuplicateWeek.
func (s *Postgres) AppendHistory(ctx context.Context, userID string, rec freeday.WeekRecord) (freeday.WeekRecord, error) {
	meals, err := encodeMeals(rec.MealsData)
	if err != nil {
		return freeday.WeekRecord{}, err
	}
	row, err := queryOne[pgHistoryRow](ctx, s.pool,
		`INSERT INTO week_history
			(user_id, week_number, date, total_consumed, margin, classification, emotion, week_quality, meals_data)
		 VALUES (@userID, @weekNumber, @date, @totalConsumed, @margin, @classification, @emotion, @weekQuality, @meals::jsonb)
		 RETURNING `+pgHistoryColumns,
		pgx.NamedArgs{
			"userID": userID, "weekNumber": rec.WeekNumber, "date": rec.Date.String(),
			"totalConsumed": rec.TotalConsumed, "margin": rec.Margin,
			"classification": string(rec.Classification),
			"emotion":        nullIfEmpty(rec.Emotion),
			"weekQuality":    nullIfEmpty(string(rec.WeekQuality)),
			"meals":          meals,
		})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return freeday.WeekRecord{}, ErrDuplicateWeek
		}
		return freeday.WeekRecord{}, fmt.Errorf("insert history: %w", err)
	}
	return row.record()
}

// UpdateHistory uses COALESCE so omitted fields keep their current values.
func (s *Postgres) UpdateHistory(ctx context.Context, userID, id string, patch freeday.WeekPatch) (freeday.WeekRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return freeday.WeekRecord{}, freeday.ErrEntryNotFound
	}
	a, err := flattenPatch(patch)
	if err != nil {
		return freeday.WeekRecord{}, err
	}
	row, err := queryOne[pgHistoryRow](ctx, s.pool,
		`UPDATE week_history SET
			total_consumed = COALESCE(@totalConsumed, total_consumed),
			classification = COALESCE(@classification, classification),
			week_quality   = COALESCE(@weekQuality, week_quality),
			meals_data     = COALESCE(@meals::jsonb, meals_data),
			emotion        = COALESCE(@emotion, emotion),
			margin         = COALESCE(@margin, margin)
		 WHERE id = @id AND user_id = @userID
		 RETURNING `+pgHistoryColumns,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"totalConsumed": a.TotalConsumed, "classification": a.Classification,
			"weekQuality": a.WeekQuality, "meals": a.MealsData,
			"emotion": a.Emotion, "margin": a.Margin,
		})
	if err != nil {
		// Distinguish a missing row from a real DB failure so callers get an
		// actionable status code rather than a misleading 404.
		if errors.Is(err, pgx.ErrNoRows) {
			return freeday.WeekRecord{}, freeday.ErrEntryNotFound
		}
		return freeday.WeekRecord{}, fmt.Errorf("update history: %w", err)
	}
	return row.record()
}

/* ─── Drafts ─────────────────────────────────────────────────────────── */

func (s *Postgres) LoadDraft(ctx context.Context, userID string) (freeday.MealsData, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT meals_data::text FROM meal_drafts WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID}).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return freeday.MealsData{}, freeday.ErrDraftNotFound
	}
	if err != nil {
		return freeday.MealsData{}, fmt.Errorf("load draft: %w", err)
	}
	return decodeMeals(raw)
}

func (s *Postgres) SaveDraft(ctx context.Context, userID string, m freeday.MealsData) error {
	meals, err := encodeMeals(m)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO meal_drafts (user_id, meals_data)
		 VALUES (@userID, @meals::jsonb)
		 ON CONFLICT (user_id) DO UPDATE SET meals_data = EXCLUDED.meals_data, updated_at = now()`,
		pgx.NamedArgs{"userID": userID, "meals": meals})
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *Postgres) ClearDraft(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		"DELETE FROM meal_drafts WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID}); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
