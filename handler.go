package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
	"lg/free-day-go-api/internal/session"
	"lg/free-day-go-api/internal/store"
)

// Handler holds shared dependencies (store, ledger, auth) for all route handlers.
type Handler struct {
	store         store.Store
	ledger        *freeday.Ledger
	signer        *session.Signer
	identity      identityProvider
	frontendURL   string
	openAIBaseURL string // Base URL for OpenAI API (overridable for tests)
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// ledgerError maps domain errors to status codes. Anything unrecognized is
// logged under fn and reported as a 500 with fallback as the message.
func ledgerError(c *gin.Context, fn string, err error, fallback string) {
	switch {
	case errors.Is(err, freeday.ErrEntryNotFound):
		apiError(c, http.StatusNotFound, "entry not found")
	case errors.Is(err, freeday.ErrProfileNotFound):
		apiError(c, http.StatusConflict, "profile not activated")
	case errors.Is(err, store.ErrUserNotFound):
		apiError(c, http.StatusNotFound, "user not found")
	case errors.Is(err, store.ErrDuplicateWeek):
		apiError(c, http.StatusConflict, "week already recorded, retry")
	case errors.Is(err, freeday.ErrInvalidProfile):
		// Request bodies are validated in the handlers; this one came from storage.
		apiError(c, http.StatusConflict, "stored profile is invalid, activate again")
	case errors.Is(err, freeday.ErrClassificationMismatch):
		apiError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, freeday.ErrEmptyPatch),
		errors.Is(err, freeday.ErrInvalidWeekQuality),
		errors.Is(err, freeday.ErrInvalidClassification),
		errors.Is(err, freeday.ErrNegativeKcal),
		errors.Is(err, freeday.ErrItemIndex):
		apiError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[%s] %v", fn, err)
		apiError(c, http.StatusInternalServerError, fallback)
	}
}

// health pings the database.
// GET /health (public).
func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		log.Printf("[health] ping: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.GET("/health", h.health)
	router.GET("/auth/google", h.googleLogin)
	router.GET("/auth/google/callback", h.googleCallback)
	router.GET("/free-day/catalog", h.getCatalog)

	// Authenticated routes
	user := router.Group("/user", h.authMiddleware())
	user.GET("/profile", h.getProfile)
	user.POST("/activate", h.activate)
	user.GET("/budget", h.getBudget)

	history := router.Group("/history", h.authMiddleware())
	history.GET("", h.listHistory)
	history.POST("", h.createHistoryEntry)
	history.PUT("/:id", h.updateHistoryEntry)

	freeDay := router.Group("/free-day", h.authMiddleware())
	freeDay.GET("/draft", h.getDraft)
	freeDay.PUT("/draft", h.saveDraft)
	freeDay.DELETE("/draft", h.discardDraft)
	freeDay.POST("/draft/items/:index/adjust", h.adjustDraftItem)
	freeDay.POST("/preview", h.preview)
	freeDay.POST("/suggest", h.suggestFoodItem)
}
