package freeday

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"time"
)

var (
	ErrEmptyPatch             = errors.New("no fields to update")
	ErrInvalidWeekQuality     = errors.New("week_quality must be one of: followed, small_deviations, lost_control")
	ErrInvalidClassification  = errors.New("classification must be one of: green, yellow, red")
	ErrNegativeKcal           = errors.New("total_consumed and margin must not be negative")
	ErrClassificationMismatch = errors.New("classification does not match total_consumed and margin")
	ErrItemIndex              = errors.New("item index out of range")
)

// WeekRecord is one finalized free day in a user's history.
// Classification is consistent with TotalConsumed and Margin when written.
// Margin is a snapshot taken at finalization and is not recomputed later.
type WeekRecord struct {
	ID             string      `json:"id"`
	WeekNumber     int         `json:"week_number"`
	Date           DateOnly    `json:"date"`
	TotalConsumed  int         `json:"total_consumed"`
	Margin         int         `json:"margin"`
	Classification Tier        `json:"classification"`
	WeekQuality    WeekQuality `json:"week_quality,omitempty"`
	Emotion        string      `json:"emotion,omitempty"`
	MealsData      MealsData   `json:"meals_data"`
	CreatedAt      time.Time   `json:"created_at"`
}

// WeekPatch is a partial update. Nil fields are left unchanged.
type WeekPatch struct {
	TotalConsumed  *int         `json:"total_consumed"`
	Classification *Tier        `json:"classification"`
	WeekQuality    *WeekQuality `json:"week_quality"`
	MealsData      *MealsData   `json:"meals_data"`
	Emotion        *string      `json:"emotion"`
	Margin         *int         `json:"margin"`
}

// Empty reports whether the patch carries no fields.
func (p WeekPatch) Empty() bool {
	return p.TotalConsumed == nil && p.Classification == nil && p.WeekQuality == nil &&
		p.MealsData == nil && p.Emotion == nil && p.Margin == nil
}

// Apply coalesces the patch onto r field by field.
func (p WeekPatch) Apply(r WeekRecord) WeekRecord {
	if p.TotalConsumed != nil {
		r.TotalConsumed = *p.TotalConsumed
	}
	if p.Classification != nil {
		r.Classification = *p.Classification
	}
	if p.WeekQuality != nil {
		r.WeekQuality = *p.WeekQuality
	}
	if p.MealsData != nil {
		r.MealsData = *p.MealsData
	}
	if p.Emotion != nil {
		r.Emotion = *p.Emotion
	}
	if p.Margin != nil {
		r.Margin = *p.Margin
	}
	return r
}

func (p WeekPatch) validate() error {
	if p.Empty() {
		return ErrEmptyPatch
	}
	if p.WeekQuality != nil && !p.WeekQuality.Valid() {
		return ErrInvalidWeekQuality
	}
	if p.Classification != nil && !p.Classification.Valid() {
		return ErrInvalidClassification
	}
	if (p.TotalConsumed != nil && *p.TotalConsumed < 0) || (p.Margin != nil && *p.Margin < 0) {
		return ErrNegativeKcal
	}
	return nil
}

// HistoryView is the read model for a user's history.
type HistoryView struct {
	Entries     []WeekRecord `json:"entries"`
	Consistency *int         `json:"consistency"`
}

// consistencyWindow is how many recent weeks the consistency score covers.
const consistencyWindow = 4

// Consistency is the share of green weeks among the most recent four,
// as a rounded percentage. entries must be newest first. nil when empty.
func Consistency(entries []WeekRecord) *int {
	window := entries[:min(len(entries), consistencyWindow)]
	if len(window) == 0 {
		return nil
	}
	greens := 0
	for _, e := range window {
		if e.Classification == TierGreen {
			greens++
		}
	}
	pct := int(math.Round(float64(greens) / float64(len(window)) * 100))
	return &pct
}

// sortNewestFirst orders by creation time, newest first, with week number as
// the tie-breaker so equal timestamps still sort deterministically.
func sortNewestFirst(entries []WeekRecord) {
	slices.SortStableFunc(entries, func(a, b WeekRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.WeekNumber, a.WeekNumber)
	})
}

/* ─── Ledger ─────────────────────────────────────────────────────────── */

// Ledger runs the week-record lifecycle on top of the gateways.
type Ledger struct {
	profiles ProfileGateway
	history  HistoryGateway
	drafts   DraftGateway
	policy   MarginPolicy
	clock    func() time.Time
	loc      *time.Location
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy selects how free-day margins are derived.
func WithPolicy(p MarginPolicy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithLocation sets the zone used to stamp record dates.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// NewLedger builds a Ledger. drafts may be nil when drafts are not kept.
func NewLedger(profiles ProfileGateway, history HistoryGateway, drafts DraftGateway, opts ...Option) *Ledger {
	l := &Ledger{
		profiles: profiles,
		history:  history,
		drafts:   drafts,
		policy:   PolicyQualityScaled,
		clock:    time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the margin policy in use.
func (l *Ledger) Policy() MarginPolicy { return l.policy }

// Budget loads the user's profile and computes the budget from it.
func (l *Ledger) Budget(ctx context.Context, userID string) (Budget, error) {
	p, err := l.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Budget{}, err
	}
	if err := p.Validate(); err != nil {
		return Budget{}, err
	}
	return ComputeBudget(p), nil
}

// CreateWeekInput is a finalized free-day log.
type CreateWeekInput struct {
	Meals       MealsData
	WeekQuality WeekQuality
	Emotion     string
}

// Create finalizes a free day into a new history entry and clears the
// user's draft.
func (l *Ledger) Create(ctx context.Context, userID string, in CreateWeekInput) (WeekRecord, error) {
	if !in.WeekQuality.Valid() {
		return WeekRecord{}, ErrInvalidWeekQuality
	}
	budget, err := l.Budget(ctx, userID)
	if err != nil {
		return WeekRecord{}, err
	}

	meals := in.Meals.Normalize()
	total := AggregateConsumption(meals)
	margin := l.policy.Margin(budget.Summary().FreeDay, in.WeekQuality)

	n, err := l.history.CountHistory(ctx, userID)
	if err != nil {
		return WeekRecord{}, fmt.Errorf("count history: %w", err)
	}

	rec := WeekRecord{
		WeekNumber:     n + 1,
		Date:           dateIn(l.clock(), l.loc),
		TotalConsumed:  total,
		Margin:         margin,
		Classification: Classify(total, margin),
		WeekQuality:    in.WeekQuality,
		Emotion:        in.Emotion,
		MealsData:      meals,
	}
	saved, err := l.history.AppendHistory(ctx, userID, rec)
	if err != nil {
		return WeekRecord{}, fmt.Errorf("append history: %w", err)
	}

	if l.drafts != nil {
		// The week is saved; a stale draft is only an inconvenience.
		if err := l.drafts.ClearDraft(ctx, userID); err != nil {
			log.Printf("[Ledger.Create] clear draft for user %s: %v", userID, err)
		}
	}
	return saved, nil
}

// Update merges patch into the entry. New meals without a total re-derive
// the total; a new week quality without a margin rescales the stored margin
// snapshot, never the current profile's budget. When total or margin is touched the classification is
// re-derived, and a supplied classification must agree with the merged
// values. An emotion-only patch leaves every number and the tier alone.
func (l *Ledger) Update(ctx context.Context, userID, id string, patch WeekPatch) (WeekRecord, error) {
	if err := patch.validate(); err != nil {
		return WeekRecord{}, err
	}
	existing, err := l.history.GetHistory(ctx, userID, id)
	if err != nil {
		return WeekRecord{}, err
	}

	if patch.MealsData != nil {
		m := patch.MealsData.Normalize()
		patch.MealsData = &m
		if patch.TotalConsumed == nil {
			total := AggregateConsumption(m)
			patch.TotalConsumed = &total
		}
	}
	if patch.WeekQuality != nil && patch.Margin == nil {
		if margin, changed := l.rescaleMargin(existing, *patch.WeekQuality); changed {
			patch.Margin = &margin
		}
	}

	merged := patch.Apply(existing)
	derived := Classify(merged.TotalConsumed, merged.Margin)
	if patch.Classification != nil && *patch.Classification != derived {
		return WeekRecord{}, ErrClassificationMismatch
	}
	if patch.TotalConsumed != nil || patch.Margin != nil {
		patch.Classification = &derived
	}

	return l.history.UpdateHistory(ctx, userID, id, patch)
}

// rescaleMargin moves a stored margin from its recorded week quality to q.
// The free-day budget is recovered from the snapshot itself, so later profile
// changes never leak into an old week. Under the flat policy and for an
// unchanged quality the margin stays as it is.
func (l *Ledger) rescaleMargin(rec WeekRecord, q WeekQuality) (int, bool) {
	if l.policy == PolicyFlat || q.Multiplier() == rec.WeekQuality.Multiplier() {
		return rec.Margin, false
	}
	freeDay := int(math.Round(float64(rec.Margin) / rec.WeekQuality.Multiplier()))
	return ScaleMargin(freeDay, q), true
}

// List returns the user's history newest first with the consistency score.
func (l *Ledger) List(ctx context.Context, userID string) (HistoryView, error) {
	entries, err := l.history.ListHistory(ctx, userID)
	if err != nil {
		return HistoryView{}, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []WeekRecord{}
	}
	sortNewestFirst(entries)
	return HistoryView{Entries: entries, Consistency: Consistency(entries)}, nil
}

/* ─── Drafts and preview ─────────────────────────────────────────────── */

// Draft returns the in-progress log, or a blank one seeded with the default
// food counters when none is saved.
func (l *Ledger) Draft(ctx context.Context, userID string) (MealsData, error) {
	if l.drafts == nil {
		return NewMealsData(), nil
	}
	m, err := l.drafts.LoadDraft(ctx, userID)
	if errors.Is(err, ErrDraftNotFound) {
		return NewMealsData(), nil
	}
	if err != nil {
		return MealsData{}, fmt.Errorf("load draft: %w", err)
	}
	return m, nil
}

// SaveDraft stores the in-progress log after clamping its quantities.
func (l *Ledger) SaveDraft(ctx context.Context, userID string, m MealsData) (MealsData, error) {
	m = m.Normalize()
	if l.drafts == nil {
		return m, nil
	}
	if err := l.drafts.SaveDraft(ctx, userID, m); err != nil {
		return MealsData{}, fmt.Errorf("save draft: %w", err)
	}
	return m, nil
}

// DiscardDraft drops the in-progress log to start a new week.
func (l *Ledger) DiscardDraft(ctx context.Context, userID string) error {
	if l.drafts == nil {
		return nil
	}
	return l.drafts.ClearDraft(ctx, userID)
}

// AdjustDraftItem moves one counter on the draft by delta, never below zero.
func (l *Ledger) AdjustDraftItem(ctx context.Context, userID string, index, delta int) (MealsData, error) {
	m, err := l.Draft(ctx, userID)
	if err != nil {
		return MealsData{}, err
	}
	items, ok := AdjustQuantity(m.Items, index, delta)
	if !ok {
		return MealsData{}, ErrItemIndex
	}
	m.Items = items
	return l.SaveDraft(ctx, userID, m)
}

// Preview is the live evaluation of a log before it is finalized.
type Preview struct {
	Breakdown           ConsumptionBreakdown `json:"breakdown"`
	FreeDayBudget       int                  `json:"free_day_budget"`
	Margin              int                  `json:"margin"`
	MarginReduction     int                  `json:"margin_reduction"`
	RemainingAfterMeals int                  `json:"remaining_after_meals"`
	Remaining           int                  `json:"remaining"`
	UsagePercent        int                  `json:"usage_percent"`
	Classification      Tier                 `json:"classification"`
	Advice              string               `json:"advice,omitempty"`
}

// BuildPreview evaluates meals against a rounded free-day budget.
// RemainingAfterMeals is the margin left once the pre-event meals are
// subtracted; Remaining also takes items and extra kcal out.
func BuildPreview(freeDay int, policy MarginPolicy, meals MealsData, q WeekQuality) Preview {
	b := Breakdown(meals.Normalize())
	margin := policy.Margin(freeDay, q)
	tier := Classify(b.Total, margin)

	usage := 0
	if margin > 0 {
		usage = min(100, int(math.Round(float64(b.Total)/float64(margin)*100)))
	}
	return Preview{
		Breakdown:           b,
		FreeDayBudget:       freeDay,
		Margin:              margin,
		MarginReduction:     freeDay - margin,
		RemainingAfterMeals: margin - b.MealsKcal,
		Remaining:           margin - b.Total,
		UsagePercent:        usage,
		Classification:      tier,
		Advice:              tier.Advice(),
	}
}

// Preview evaluates meals against the user's current budget.
func (l *Ledger) Preview(ctx context.Context, userID string, meals MealsData, q WeekQuality) (Preview, error) {
	if !q.Valid() {
		return Preview{}, ErrInvalidWeekQuality
	}
	budget, err := l.Budget(ctx, userID)
	if err != nil {
		return Preview{}, err
	}
	return BuildPreview(budget.Summary().FreeDay, l.policy, meals, q), nil
}
