package freeday

import (
	"errors"
	"fmt"
	"math"
)

// Sex selects the Mifflin-St Jeor constant.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityLevel is a self-reported activity tier.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityActive    ActivityLevel = "active"
)

// activityMultipliers maps activity level to its TDEE multiplier.
// It is also the set of valid activity levels checked by Profile.Validate.
var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityActive:    1.725,
}

// WeeklyGoal is the target loss in kg/week. Only the three table values exist.
type WeeklyGoal float64

const (
	GoalQuarterKg      WeeklyGoal = 0.25
	GoalHalfKg         WeeklyGoal = 0.5
	GoalThreeQuarterKg WeeklyGoal = 0.75
)

// weeklyDeficits are fixed kcal/week constants, not derived from kg × 7700.
var weeklyDeficits = map[WeeklyGoal]int{
	GoalQuarterKg:      1900,
	GoalHalfKg:         3500,
	GoalThreeQuarterKg: 5250,
}

// ErrInvalidProfile is wrapped by Profile.Validate.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile holds the body stats the budget is computed from.
type Profile struct {
	WeightKG      float64       `json:"weight"`
	HeightCM      float64       `json:"height"`
	Age           int           `json:"age"`
	Sex           Sex           `json:"sex"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	WeeklyGoal    WeeklyGoal    `json:"weekly_goal"`
}

// Validate checks enum membership and positivity, and that the weekly goal
// still leaves a positive free-day budget. ComputeBudget does not call it;
// callers validate at the boundary.
func (p Profile) Validate() error {
	if p.WeightKG <= 0 || p.HeightCM <= 0 || p.Age <= 0 {
		return fmt.Errorf("%w: weight, height and age must be positive", ErrInvalidProfile)
	}
	if p.Sex != SexMale && p.Sex != SexFemale {
		return fmt.Errorf("%w: sex must be one of: male, female", ErrInvalidProfile)
	}
	if _, ok := activityMultipliers[p.ActivityLevel]; !ok {
		return fmt.Errorf("%w: activity_level must be one of: sedentary, light, moderate, active", ErrInvalidProfile)
	}
	if _, ok := weeklyDeficits[p.WeeklyGoal]; !ok {
		return fmt.Errorf("%w: weekly_goal must be one of: 0.25, 0.5, 0.75", ErrInvalidProfile)
	}
	if ComputeBudget(p).Summary().FreeDay <= 0 {
		return fmt.Errorf("%w: weekly_goal %.2f leaves no free-day budget for this profile", ErrInvalidProfile, float64(p.WeeklyGoal))
	}
	return nil
}

// Budget is the unrounded result of ComputeBudget. It is never stored; it is
// derived from the Profile on every read.
type Budget struct {
	BMR           float64
	TDEE          float64
	WeeklyDeficit int
	WeeklyTarget  float64
	RoutineDay    float64
	FreeDay       float64
}

// BudgetSummary is the display form of a Budget.
type BudgetSummary struct {
	BMR           int `json:"bmr"`
	TDEE          int `json:"tdee"`
	WeeklyDeficit int `json:"weekly_deficit"`
	WeeklyTarget  int `json:"weekly_target"`
	RoutineDay    int `json:"daily_routine"`
	FreeDay       int `json:"daily_free_day"`
}

// ComputeBudget converts a profile into BMR (Mifflin-St Jeor), TDEE and the
// weekly split of 5 routine days plus 1 free day.
//
// The week is split across 6 slots: routine days share (target − TDEE) / 6
// and the free day takes whatever the 5 routine days leave, so
// 5×RoutineDay + FreeDay == WeeklyTarget exactly before rounding.
func ComputeBudget(p Profile) Budget {
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if p.Sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	tdee := bmr * activityMultipliers[p.ActivityLevel]
	deficit := weeklyDeficits[p.WeeklyGoal]
	weeklyTarget := tdee*7 - float64(deficit)

	routine := (weeklyTarget - tdee) / 6
	free := weeklyTarget - 5*routine

	return Budget{
		BMR:           bmr,
		TDEE:          tdee,
		WeeklyDeficit: deficit,
		WeeklyTarget:  weeklyTarget,
		RoutineDay:    routine,
		FreeDay:       free,
	}
}

// Summary rounds every field to the nearest integer except the weekly
// deficit, which is reported as the table constant. Rounding each field
// independently can leave 5×RoutineDay + FreeDay off WeeklyTarget by one.
func (b Budget) Summary() BudgetSummary {
	return BudgetSummary{
		BMR:           roundKcal(b.BMR),
		TDEE:          roundKcal(b.TDEE),
		WeeklyDeficit: b.WeeklyDeficit,
		WeeklyTarget:  roundKcal(b.WeeklyTarget),
		RoutineDay:    roundKcal(b.RoutineDay),
		FreeDay:       roundKcal(b.FreeDay),
	}
}

func roundKcal(v float64) int {
	return int(math.Round(v))
}
