package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
)

// listHistory returns the user's weeks newest first with the consistency score
// over the latest four.
// GET /history.
func (h *Handler) listHistory(c *gin.Context) {
	userID := c.GetString("user_id")

	view, err := h.ledger.List(c.Request.Context(), userID)
	if err != nil {
		ledgerError(c, "listHistory", err, "failed to fetch history")
		return
	}
	c.JSON(http.StatusOK, view)
}

// createHistoryEntry finalizes a free day. The total, margin, tier, week number
// and date are computed here; when meals_data is omitted the saved draft is
// used. The draft is cleared afterwards.
// POST /history. Body: { meals_data?, week_quality, emotion? }.
func (h *Handler) createHistoryEntry(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	var body createHistoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var meals freeday.MealsData
	if body.MealsData != nil {
		meals = *body.MealsData
	} else {
		draft, err := h.ledger.Draft(ctx, userID)
		if err != nil {
			ledgerError(c, "createHistoryEntry", err, "failed to save history")
			return
		}
		meals = draft
	}

	rec, err := h.ledger.Create(ctx, userID, freeday.CreateWeekInput{
		Meals:       meals,
		WeekQuality: body.WeekQuality,
		Emotion:     body.Emotion,
	})
	if err != nil {
		ledgerError(c, "createHistoryEntry", err, "failed to save history")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// updateHistoryEntry partially updates an entry.
// PUT /history/:id. Body: any of { total_consumed, classification,
// week_quality, meals_data, emotion, margin }. Omitted fields keep their
// current values; the tier is re-derived whenever a number changes.
func (h *Handler) updateHistoryEntry(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("id")

	var body freeday.WeekPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.ledger.Update(c.Request.Context(), userID, id, body)
	if err != nil {
		ledgerError(c, "updateHistoryEntry", err, "failed to update entry")
		return
	}
	c.JSON(http.StatusOK, rec)
}
