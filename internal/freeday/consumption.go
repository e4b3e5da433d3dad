package freeday

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MealIntensity describes how much was eaten at a meal before the event.
type MealIntensity string

const (
	MealNotConsumed MealIntensity = "not_consumed"
	MealLight       MealIntensity = "light"
	MealModerate    MealIntensity = "moderate"
	MealHigh        MealIntensity = "high"
)

var mealEstimates = map[MealIntensity]int{
	MealNotConsumed: 0,
	MealLight:       350,
	MealModerate:    550,
	MealHigh:        800,
}

// Kcal returns the estimate for the intensity. Unset or unknown selections
// count as 0; an unset selection is normal while a log is being filled in.
func (m MealIntensity) Kcal() int {
	return mealEstimates[m]
}

// FoodItem is one counter on the free-day log.
type FoodItem struct {
	Name     string `json:"name"`
	KcalEach int    `json:"kcal_each"`
	Quantity int    `json:"quantity"`
}

// SupplementalKcal is the free-text "extra calories" field. It decodes
// leniently: numbers, numeric strings (dot or comma decimal) and null are all
// accepted, and anything unparseable, negative or non-finite becomes 0.
// Fractions are truncated and values above maxSupplementalKcal are clamped.
type SupplementalKcal int

const maxSupplementalKcal = math.MaxInt32

// ParseSupplementalKcal applies the lenient rules to raw text.
func ParseSupplementalKcal(s string) SupplementalKcal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return SupplementalKcal(math.Trunc(min(v, maxSupplementalKcal)))
}

func (k *SupplementalKcal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*k = 0
			return nil
		}
		*k = ParseSupplementalKcal(s)
		return nil
	}
	// null, numbers and anything else go through the same text path
	*k = ParseSupplementalKcal(string(b))
	return nil
}

// MealsData is a free-day log: three pre-event meals, itemized counters and
// an extra kcal amount.
type MealsData struct {
	Breakfast    MealIntensity    `json:"breakfast"`
	Lunch        MealIntensity    `json:"lunch"`
	DinnerBefore MealIntensity    `json:"dinner_before"`
	Items        []FoodItem       `json:"items"`
	CustomKcal   SupplementalKcal `json:"custom_kcal"`
}

// Normalize clamps negative quantities and per-unit kcal to zero and makes
// Items non-nil so it encodes as an empty array.
func (m MealsData) Normalize() MealsData {
	items := make([]FoodItem, len(m.Items))
	for i, it := range m.Items {
		it.Quantity = max(it.Quantity, 0)
		it.KcalEach = max(it.KcalEach, 0)
		items[i] = it
	}
	m.Items = items
	if m.CustomKcal < 0 {
		m.CustomKcal = 0
	}
	return m
}

// ConsumptionBreakdown splits a total into its sources.
type ConsumptionBreakdown struct {
	MealsKcal int `json:"meals_kcal"`
	ItemsKcal int `json:"items_kcal"`
	ExtraKcal int `json:"extra_kcal"`
	Total     int `json:"total"`
}

// Breakdown sums a free day's intake by source.
func Breakdown(m MealsData) ConsumptionBreakdown {
	b := ConsumptionBreakdown{
		MealsKcal: m.Breakfast.Kcal() + m.Lunch.Kcal() + m.DinnerBefore.Kcal(),
		ExtraKcal: int(m.CustomKcal),
	}
	for _, it := range m.Items {
		b.ItemsKcal += it.KcalEach * it.Quantity
	}
	b.Total = b.MealsKcal + b.ItemsKcal + b.ExtraKcal
	return b
}

// AggregateConsumption returns the total kcal consumed on a free day.
// There is no upper bound.
func AggregateConsumption(m MealsData) int {
	return Breakdown(m).Total
}

// AdjustQuantity returns a copy of items with items[index].Quantity moved by
// delta, clamped at zero. ok is false when index is out of range.
func AdjustQuantity(items []FoodItem, index, delta int) (out []FoodItem, ok bool) {
	if index < 0 || index >= len(items) {
		return items, false
	}
	out = make([]FoodItem, len(items))
	copy(out, items)
	out[index].Quantity = max(0, out[index].Quantity+delta)
	return out, true
}
