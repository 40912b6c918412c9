package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polyglotd/polyglotd/pkg/translate"
)

const apiKeyContextKey = "api_key"

// TextValue accepts either a single string or an array of strings, and
// serializes back in the same shape.
type TextValue struct {
	Values []string
	Single bool
}

func (t *TextValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		t.Values = []string{single}
		t.Single = true
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("text must be a string or an array of strings")
	}
	t.Values = many
	t.Single = false
	return nil
}

func (t TextValue) MarshalJSON() ([]byte, error) {
	if t.Single {
		if len(t.Values) == 0 {
			return json.Marshal("")
		}
		return json.Marshal(t.Values[0])
	}
	if t.Values == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(t.Values)
}

func (s *Server) registerAPIRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1", s.requireAPIKey, s.rateLimited)
	v1.POST("/translate", s.handleTranslate)
	v1.POST("/detect", s.handleDetect)
	v1.GET("/history", s.handleHistory)
}

// requireAPIKey authenticates the caller from the X-API-Key header.
func (s *Server) requireAPIKey(c *gin.Context) {
	key := c.GetHeader("X-API-Key")
	if key == "" {
		respondError(c, http.StatusUnauthorized, "API key is missing", s.logger)
		return
	}
	if !s.keyring.Verify(key) {
		respondError(c, http.StatusUnauthorized, "Invalid API key", s.logger)
		return
	}
	c.Set(apiKeyContextKey, key)
	c.Next()
}

// rateLimited enforces the per-key request ceiling. Only allowed requests are
// recorded against the window.
func (s *Server) rateLimited(c *gin.Context) {
	key := callerKey(c)
	allowed, remaining := s.rateLimiter.Check(key)
	if !allowed {
		message := fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", s.maxPerMinute)
		respondError(c, http.StatusTooManyRequests, message, s.logger)
		return
	}
	s.rateLimiter.Record(key)

	c.Header("X-RateLimit-Limit", strconv.Itoa(s.maxPerMinute))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining-1))
	c.Next()
}

func callerKey(c *gin.Context) string {
	if value, ok := c.Get(apiKeyContextKey); ok {
		if key, ok := value.(string); ok {
			return key
		}
	}
	return c.ClientIP()
}

type translateRequestBody struct {
	Text       TextValue `json:"text"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
}

type translateResponseBody struct {
	OriginalText   TextValue `json:"original_text"`
	TranslatedText TextValue `json:"translated_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *Server) handleTranslate(c *gin.Context) {
	var body translateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	targetLang := strings.ToLower(strings.TrimSpace(body.TargetLang))
	if targetLang == "" {
		respondError(c, http.StatusBadRequest, "Target language is required", s.logger)
		return
	}
	sourceLang := strings.ToLower(strings.TrimSpace(body.SourceLang))

	result, err := s.translator.Translate(c.Request.Context(), translate.Request{
		Texts:      body.Text.Values,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		CallerKey:  callerKey(c),
	})
	if err != nil {
		s.respondTranslateError(c, err)
		return
	}

	reqLogger := requestLogger(c, s.logger)
	reqLogger.Info().
		Str("caller", s.keyring.Fingerprint(callerKey(c))).
		Str("source_lang", result.SourceLang).
		Str("target_lang", result.TargetLang).
		Int("batch_size", len(result.Texts)).
		Msg("translation completed")

	c.JSON(http.StatusOK, translateResponseBody{
		OriginalText:   TextValue{Values: result.OriginalTexts, Single: body.Text.Single},
		TranslatedText: TextValue{Values: result.Texts, Single: body.Text.Single},
		SourceLang:     result.SourceLang,
		TargetLang:     result.TargetLang,
		Timestamp:      result.Timestamp,
	})
}

func (s *Server) respondTranslateError(c *gin.Context, err error) {
	var unsupported *translate.UnsupportedLanguageError
	if errors.As(err, &unsupported) {
		respondError(c, http.StatusBadRequest, unsupported.Error(), s.logger)
		return
	}
	respondError(c, http.StatusInternalServerError, err.Error(), s.logger)
}

type detectRequestBody struct {
	Text string `json:"text"`
}

type detectResponseBody struct {
	Text         string  `json:"text"`
	DetectedLang string  `json:"detected_lang"`
	Confidence   float64 `json:"confidence"`
}

func (s *Server) handleDetect(c *gin.Context) {
	var body detectRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	text, detection, err := s.translator.Detect(c.Request.Context(), body.Text)
	if err != nil {
		// Detection failures are a caller problem here: too-short text or
		// text the engine cannot classify.
		respondError(c, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	c.JSON(http.StatusOK, detectResponseBody{
		Text:         text,
		DetectedLang: detection.Language,
		Confidence:   math.Round(detection.Confidence*10000) / 10000,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(c, http.StatusBadRequest, "limit must be between 1 and 1000", s.logger)
			return
		}
		limit = parsed
	}

	records, err := s.history.ForCaller(c.Request.Context(), callerKey(c), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load history", s.logger)
		return
	}

	c.JSON(http.StatusOK, records)
}
