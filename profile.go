package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
	"lg/free-day-go-api/internal/store"
)

// getProfile returns the account with its profile and budget. Profile and
// budget are null until the user activates.
// GET /user/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	u, err := h.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("[getProfile] get user: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	resp := profileResponse{User: u}
	p, err := h.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		resp.Profile = &p
		// A stored profile that no longer validates still shows, without a budget.
		if p.Validate() == nil {
			summary := freeday.ComputeBudget(p).Summary()
			resp.Budget = &summary
		}
	case !errors.Is(err, freeday.ErrProfileNotFound):
		log.Printf("[getProfile] get profile: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// activate stores the body profile and marks the account activated. It can be
// called again later to change the profile; history margins are snapshots and
// are not recomputed.
// POST /user/activate. Body: { weight, height, age, sex, activity_level, weekly_goal }.
func (h *Handler) activate(c *gin.Context) {
	userID := c.GetString("user_id")

	var body freeday.Profile
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := body.Validate(); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.store.SaveProfile(c.Request.Context(), userID, body)
	if err != nil {
		ledgerError(c, "activate", err, "failed to activate account")
		return
	}

	summary := freeday.ComputeBudget(p).Summary()
	c.JSON(http.StatusOK, gin.H{"is_activated": true, "profile": p, "budget": summary})
}

// getBudget returns the budget summary and the margin for each week quality.
// GET /user/budget.
func (h *Handler) getBudget(c *gin.Context) {
	userID := c.GetString("user_id")

	budget, err := h.ledger.Budget(c.Request.Context(), userID)
	if err != nil {
		ledgerError(c, "getBudget", err, "failed to compute budget")
		return
	}

	summary := budget.Summary()
	policy := h.ledger.Policy()
	resp := budgetResponse{
		BudgetSummary: summary,
		MarginPolicy:  policy,
		Margins:       map[freeday.WeekQuality]int{},
	}
	for _, q := range []freeday.WeekQuality{freeday.QualityFollowed, freeday.QualitySmallDeviations, freeday.QualityLostControl} {
		resp.Margins[q] = policy.Margin(summary.FreeDay, q)
	}
	c.JSON(http.StatusOK, resp)
}
