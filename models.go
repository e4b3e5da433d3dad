package main

import (
	"lg/free-day-go-api/internal/freeday"
	"lg/free-day-go-api/internal/store"
)

/* ─── Responses ──────────────────────────────────────────────────────── */

// profileResponse is the shape of GET /user/profile. Profile and Budget are
// null until the account is activated.
type profileResponse struct {
	store.User
	Profile *freeday.Profile       `json:"profile"`
	Budget  *freeday.BudgetSummary `json:"budget"`
}

// budgetResponse is the shape of GET /user/budget. Margins lists the free-day
// margin for each week quality under the active policy.
type budgetResponse struct {
	freeday.BudgetSummary
	MarginPolicy freeday.MarginPolicy        `json:"margin_policy"`
	Margins      map[freeday.WeekQuality]int `json:"margins"`
}

/* ─── Requests ───────────────────────────────────────────────────────── */

// createHistoryRequest is the request body for POST /history. Totals, margin,
// tier, week number and date are all computed server-side.
type createHistoryRequest struct {
	MealsData   *freeday.MealsData  `json:"meals_data"`
	WeekQuality freeday.WeekQuality `json:"week_quality"`
	Emotion     string              `json:"emotion"`
}

// previewRequest is the request body for POST /free-day/preview. When
// meals_data is omitted the saved draft is evaluated.
type previewRequest struct {
	MealsData   *freeday.MealsData  `json:"meals_data"`
	WeekQuality freeday.WeekQuality `json:"week_quality"`
}

// adjustItemRequest is the request body for POST /free-day/draft/items/:index/adjust.
// Delta is a pointer so a missing field can be told apart from 0.
type adjustItemRequest struct {
	Delta *int `json:"delta"`
}
