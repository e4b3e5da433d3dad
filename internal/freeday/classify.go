package freeday

import (
	"fmt"
	"math"
)

// Tier is the three-level outcome of a free day.
type Tier string

const (
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierRed    Tier = "red"
)

// yellowBand is the tolerated overage in kcal before a day turns red.
const yellowBand = 300

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool {
	return t == TierGreen || t == TierYellow || t == TierRed
}

// Classify maps consumption against a margin to a tier:
// at or under the margin is green, up to 300 over is yellow, beyond is red.
func Classify(consumed, margin int) Tier {
	diff := consumed - margin
	switch {
	case diff <= 0:
		return TierGreen
	case diff <= yellowBand:
		return TierYellow
	default:
		return TierRed
	}
}

// Advice is the suggested follow-up for a tier. Green needs none.
func (t Tier) Advice() string {
	switch t {
	case TierYellow:
		return "Reduce about 100 kcal per day from Monday to Wednesday."
	case TierRed:
		return "Reduce about 150 kcal per day next week."
	}
	return ""
}

// WeekQuality is the self-reported adherence over the routine days.
type WeekQuality string

const (
	QualityFollowed        WeekQuality = "followed"
	QualitySmallDeviations WeekQuality = "small_deviations"
	QualityLostControl     WeekQuality = "lost_control"
)

var qualityMultipliers = map[WeekQuality]float64{
	QualityFollowed:        1.0,
	QualitySmallDeviations: 0.9,
	QualityLostControl:     0.75,
}

// Valid reports whether q is empty (not selected) or a known tier.
func (q WeekQuality) Valid() bool {
	if q == "" {
		return true
	}
	_, ok := qualityMultipliers[q]
	return ok
}

// Multiplier returns the free-day scale for q; unselected counts as 1.0.
func (q WeekQuality) Multiplier() float64 {
	if m, ok := qualityMultipliers[q]; ok {
		return m
	}
	return 1.0
}

// ScaleMargin scales a free-day budget by the week-quality multiplier.
func ScaleMargin(freeDay int, q WeekQuality) int {
	return int(math.Round(float64(freeDay) * q.Multiplier()))
}

// MarginPolicy decides how the free-day margin is derived from the budget.
type MarginPolicy string

const (
	// PolicyQualityScaled scales the free-day budget by week quality.
	PolicyQualityScaled MarginPolicy = "quality_scaled"
	// PolicyFlat always uses the free-day budget as is.
	PolicyFlat MarginPolicy = "flat"
)

// ParseMarginPolicy accepts the two policy names; empty selects quality_scaled.
func ParseMarginPolicy(s string) (MarginPolicy, error) {
	switch MarginPolicy(s) {
	case "", PolicyQualityScaled:
		return PolicyQualityScaled, nil
	case PolicyFlat:
		return PolicyFlat, nil
	}
	return "", fmt.Errorf("unknown margin policy %q (expected quality_scaled or flat)", s)
}

// Margin returns the kcal a free day is measured against. freeDay is the
// rounded free-day budget.
func (p MarginPolicy) Margin(freeDay int, q WeekQuality) int {
	if p == PolicyFlat {
		return freeDay
	}
	return ScaleMargin(freeDay, q)
}
