package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
)

// getCatalog returns the meal options, default food items, week-quality
// options and emotion tags used to render the free-day log.
// GET /free-day/catalog (public).
func (h *Handler) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, freeday.DefaultCatalog())
}

// GET /free-day/draft.
func (h *Handler) getDraft(c *gin.Context) {
	userID := c.GetString("user_id")

	m, err := h.ledger.Draft(c.Request.Context(), userID)
	if err != nil {
		ledgerError(c, "getDraft", err, "failed to load draft")
		return
	}
	c.JSON(http.StatusOK, m)
}

// saveDraft replaces the in-progress log. Negative quantities are clamped.
// PUT /free-day/draft. Body: meals_data.
func (h *Handler) saveDraft(c *gin.Context) {
	userID := c.GetString("user_id")

	var body freeday.MealsData
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.ledger.SaveDraft(c.Request.Context(), userID, body)
	if err != nil {
		ledgerError(c, "saveDraft", err, "failed to save draft")
		return
	}
	c.JSON(http.StatusOK, m)
}

// discardDraft starts a new week without saving the current log.
// DELETE /free-day/draft.
func (h *Handler) discardDraft(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.ledger.DiscardDraft(c.Request.Context(), userID); err != nil {
		ledgerError(c, "discardDraft", err, "failed to discard draft")
		return
	}
	c.Status(http.StatusNoContent)
}

// adjustDraftItem steps one food counter, never below zero.
// POST /free-day/draft/items/:index/adjust. Body: { "delta": n }.
func (h *Handler) adjustDraftItem(c *gin.Context) {
	userID := c.GetString("user_id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "index must be an integer")
		return
	}

	var body adjustItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Delta == nil {
		apiError(c, http.StatusBadRequest, "delta is required")
		return
	}

	m, err := h.ledger.AdjustDraftItem(c.Request.Context(), userID, index, *body.Delta)
	if err != nil {
		ledgerError(c, "adjustDraftItem", err, "failed to update draft")
		return
	}
	c.JSON(http.StatusOK, m)
}

// preview evaluates a log against the user's budget without saving it.
// POST /free-day/preview. Body: { meals_data?, week_quality }.
func (h *Handler) preview(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	var body previewRequest
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
			ledgerError(c, "preview", err, "failed to build preview")
			return
		}
		meals = draft
	}

	p, err := h.ledger.Preview(ctx, userID, meals, body.WeekQuality)
	if err != nil {
		ledgerError(c, "preview", err, "failed to build preview")
		return
	}
	c.JSON(http.StatusOK, p)
}
