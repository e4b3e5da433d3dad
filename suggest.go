package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// suggestRequest is the request body for POST /free-day/suggest.
// With AddToDraft the estimate is appended to the user's draft as a counter.
type suggestRequest struct {
	Description string `json:"description"`
	AddToDraft  bool   `json:"add_to_draft"`
}

// suggestionResponse is the structured estimate returned by the AI.
// Confidence is 1-5 indicating how accurate the estimate is.
type suggestionResponse struct {
	Name       string `json:"name"`
	KcalEach   int    `json:"kcal_each"`
	Quantity   int    `json:"quantity"`
	Confidence int    `json:"confidence"`
}

func (s suggestionResponse) foodItem() freeday.FoodItem {
	return freeday.FoodItem{Name: s.Name, KcalEach: s.KcalEach, Quantity: max(s.Quantity, 0)}
}

/* ─── OpenAI prompt constants ────────────────────────────────────────── */

const foodItemSystemPrompt = `You are a nutrition assistant for a weekly "free day" log (parties, bars, restaurants). Parse the description and return a JSON object with:
- "name" (string, short title case label for ONE serving, e.g. "Caipirinha 300ml")
- "kcal_each" (integer, calories for one serving)
- "quantity" (integer, number of servings described; 1 if not stated)
- "confidence" (integer 1-5: 5=exact known nutritional data, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unfamiliar or vague items. Use your knowledge of similar foods and drinks to approximate. Only return {"error": "unrecognized"} if the input is not food or drink at all (e.g. random characters, non-food objects).
Return only valid JSON, no explanation.`

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIMessage        `json:"messages"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat map[string]interface{} `json:"response_format"`
}

// callOpenAI sends a chat completions request and returns the raw content string
// from the first choice. Uses raw net/http to avoid pulling in the OpenAI SDK.
func callOpenAI(ctx context.Context, messages []openAIMessage, baseURL string) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqBody := openAIRequest{
		Model:       "gpt-4o-mini",
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

/* ─── Handler ────────────────────────────────────────────────────────── */

// suggestFoodItem handles POST /free-day/suggest.
// Accepts a free-text description of something eaten or drunk, asks OpenAI
// for a per-serving kcal estimate and returns it shaped as a food item.
func (h *Handler) suggestFoodItem(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}

	messages := []openAIMessage{
		{Role: "system", Content: foodItemSystemPrompt},
		{Role: "user", Content: req.Description},
	}

	content, err := callOpenAI(c.Request.Context(), messages, h.openAIBaseURL)
	if err != nil {
		log.Printf("[suggest] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// Check if the AI returned an "unrecognized" error
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &errorResp); err != nil {
		log.Printf("[suggest] Failed to parse OpenAI response: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}
	if errorResp.Error == "unrecognized" {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	var suggestion suggestionResponse
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		log.Printf("[suggest] Failed to parse suggestion JSON: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// A usable estimate needs at least a name and a positive kcal per serving
	if suggestion.Name == "" || suggestion.KcalEach <= 0 {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}
	if suggestion.Quantity <= 0 {
		suggestion.Quantity = 1
	}

	if !req.AddToDraft {
		c.JSON(http.StatusOK, suggestion)
		return
	}

	userID := c.GetString("user_id")
	draft, err := h.ledger.Draft(c.Request.Context(), userID)
	if err != nil {
		ledgerError(c, "suggest", err, "failed to update draft")
		return
	}
	draft.Items = append(draft.Items, suggestion.foodItem())
	draft, err = h.ledger.SaveDraft(c.Request.Context(), userID, draft)
	if err != nil {
		ledgerError(c, "suggest", err, "failed to update draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion, "draft": draft})
}
