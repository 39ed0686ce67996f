package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tastevine/backend/config"
)

const assistantInstruction = " You are a helpful recipe recommender assistant. Answer only if the question is relevant to the recipe recommendations, food based, time to cook, where the dish is most famous etc. all and only about food. If the question is not relevant to food, say 'I'm sorry, I can only help with recipe recommendations.'. Give answers in the format: Recipe name, Time to cook, Ingredients, Instructions. Give no extra information unless asked for."

// The only two strings Respond may return when generation fails.
const (
	FallbackEmptyResponse = "I apologize, but I couldn't generate a response for your query. Please try again."
	FallbackRequestError  = "I apologize, but I encountered an error while trying to generate a response. Please ensure your GEMINI_API_KEY is correct and try again."
)

const responseCacheTTL = time.Hour

// Preferences describes the user profile folded into prompt construction.
type Preferences struct {
	DietaryRestrictions []string
	CookingSkillLevel   string
	PreferredCuisines   []string
}

// CookingAssistant forwards user messages to the Gemini API wrapped in a
// fixed food-only instruction. Respond never fails: every error path maps to
// one of the two fallback strings.
type CookingAssistant struct {
	apiKey string
	apiURL string
	client *http.Client
	redis  *redis.Client
	prefs  Preferences
}

// NewCookingAssistant creates a CookingAssistant. A missing API key is fatal
// at construction. The Redis client is optional; when nil, responses are not
// cached.
func NewCookingAssistant(cfg *config.Config, redisClient *redis.Client) (*CookingAssistant, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY or GEMINI_API_KEY_FILE must be set")
	}

	apiURL := cfg.GeminiURL
	if apiURL == "" {
		apiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	}

	return &CookingAssistant{
		apiKey: cfg.GeminiAPIKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 60 * time.Second},
		redis:  redisClient,
	}, nil
}

// SetPreferences replaces the in-memory user profile. Preferences are never
// persisted.
func (a *CookingAssistant) SetPreferences(p Preferences) {
	a.prefs = p
}

// Respond processes a user message and returns the assistant's reply
func (a *CookingAssistant) Respond(ctx context.Context, message string) string {
	if strings.TrimSpace(message) == "" {
		return FallbackEmptyResponse
	}

	if cached, ok := a.cachedResponse(ctx, message); ok {
		return cached
	}

	text, err := a.generate(ctx, a.buildPrompt(message))
	if err != nil {
		log.Printf("Error generating response: %v", err)
		return FallbackRequestError
	}
	if text == "" {
		return FallbackEmptyResponse
	}

	a.cacheResponse(ctx, message, text)
	return text
}

// buildPrompt appends the fixed instruction and any user preferences to the
// message
func (a *CookingAssistant) buildPrompt(message string) string {
	var b strings.Builder
	b.WriteString(message)
	b.WriteString(assistantInstruction)
	if len(a.prefs.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, " The user has these dietary restrictions: %s.", strings.Join(a.prefs.DietaryRestrictions, ", "))
	}
	if a.prefs.CookingSkillLevel != "" {
		fmt.Fprintf(&b, " The user's cooking skill level is %s.", a.prefs.CookingSkillLevel)
	}
	if len(a.prefs.PreferredCuisines) > 0 {
		fmt.Fprintf(&b, " The user prefers these cuisines: %s.", strings.Join(a.prefs.PreferredCuisines, ", "))
	}
	return b.String()
}

func (a *CookingAssistant) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generative API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

func (a *CookingAssistant) cachedResponse(ctx context.Context, message string) (string, bool) {
	if a.redis == nil {
		return "", false
	}
	text, err := a.redis.Get(ctx, responseCacheKey(message)).Result()
	if err != nil {
		return "", false
	}
	return text, true
}

func (a *CookingAssistant) cacheResponse(ctx context.Context, message, text string) {
	if a.redis == nil {
		return
	}
	// Cache failures only cost us a recomputation
	if err := a.redis.Set(ctx, responseCacheKey(message), text, responseCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache chat response: %v", err)
	}
}

func responseCacheKey(message string) string {
	sum := sha1.Sum([]byte(message))
	return "chat:response:" + hex.EncodeToString(sum[:])
}
