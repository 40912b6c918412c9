package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polyglotd/polyglotd/pkg/auth"
	"github.com/polyglotd/polyglotd/pkg/translate"
	"github.com/polyglotd/polyglotd/pkg/validate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testAPIKey = "test-key-123"

type fakeEngine struct {
	mu           sync.Mutex
	detectCalls  int
	detection    translate.Detection
	detectErr    error
	translateErr error
}

func (e *fakeEngine) Detect(context.Context, string) (translate.Detection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detectCalls++
	if e.detectErr != nil {
		return translate.Detection{}, e.detectErr
	}
	return e.detection, nil
}

func (e *fakeEngine) Translate(_ context.Context, text, _, targetLang string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.translateErr != nil {
		return "", e.translateErr
	}
	return fmt.Sprintf("%s:%s", targetLang, text), nil
}

type apiTestEnv struct {
	server *Server
	gin    *gin.Engine
	engine *fakeEngine
}

func newAPITestEnv(t *testing.T, maxPerMinute int) apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&TranslationHistory{}))

	engine := &fakeEngine{detection: translate.Detection{Language: "en", Confidence: 0.95}}
	validator := validate.New(5000, []string{"en", "es", "fr", "de"})
	history := NewHistoryStore(db)

	srv := &Server{
		logger:       zerolog.Nop(),
		db:           db,
		history:      history,
		rateLimiter:  NewRateLimiter(maxPerMinute, time.Minute),
		keyring:      auth.NewKeyring([]string{testAPIKey, "other-key"}, []byte("salt")),
		translator:   translate.NewService(engine, validator, history, zerolog.Nop()),
		maxPerMinute: maxPerMinute,
		environment:  "test",
	}

	g := gin.New()
	g.Use(withRequestContext(zerolog.Nop()))
	srv.registerAPIRoutes(g)

	return apiTestEnv{server: srv, gin: g, engine: engine}
}

func (env apiTestEnv) do(t *testing.T, method, path, key string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp := httptest.NewRecorder()
	env.gin.ServeHTTP(resp, req)
	return resp
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error
}

func TestTranslateRequiresAPIKey(t *testing.T) {
	env := newAPITestEnv(t, 100)

	resp := env.do(t, http.MethodPost, "/api/v1/translate", "", gin.H{"text": "Hello", "target_lang": "es"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "API key is missing", errorMessage(t, resp))

	resp = env.do(t, http.MethodPost, "/api/v1/translate", "wrong-key", gin.H{"text": "Hello", "target_lang": "es"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "Invalid API key", errorMessage(t, resp))
}

func TestTranslateSingleText(t *testing.T) {
	env := newAPITestEnv(t, 100)

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": "Hello", "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		OriginalText   string    `json:"original_text"`
		TranslatedText string    `json:"translated_text"`
		SourceLang     string    `json:"source_lang"`
		TargetLang     string    `json:"target_lang"`
		Timestamp      time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "Hello", body.OriginalText)
	require.Equal(t, "es:Hello", body.TranslatedText)
	require.Equal(t, "en", body.SourceLang)
	require.Equal(t, "es", body.TargetLang)
	require.False(t, body.Timestamp.IsZero())
}

func TestTranslateBatchMirrorsShape(t *testing.T) {
	env := newAPITestEnv(t, 100)

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": []string{"Hello", "Good morning"}, "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		OriginalText   []string `json:"original_text"`
		TranslatedText []string `json:"translated_text"`
		SourceLang     string   `json:"source_lang"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, []string{"Hello", "Good morning"}, body.OriginalText)
	require.Equal(t, []string{"es:Hello", "es:Good morning"}, body.TranslatedText)
	require.Equal(t, "en", body.SourceLang)
}

func TestTranslateAutoDetectFallsBack(t *testing.T) {
	env := newAPITestEnv(t, 100)
	env.engine.detectErr = errors.New("too short")

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": "Hello", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		SourceLang string `json:"source_lang"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "en", body.SourceLang)
	require.Equal(t, 1, env.engine.detectCalls)
}

func TestTranslateValidationFailures(t *testing.T) {
	env := newAPITestEnv(t, 100)

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey, gin.H{"text": "Hello"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Target language is required", errorMessage(t, resp))

	resp = env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": "Hello", "target_lang": "xx"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, errorMessage(t, resp), "unsupported language")
}

func TestTranslateBackendFailureReturns500(t *testing.T) {
	env := newAPITestEnv(t, 100)
	env.engine.translateErr = &translate.BackendError{Op: "translate", Err: errors.New("timeout")}

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": "Hello", "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Contains(t, errorMessage(t, resp), "translation backend")
}

func TestRateLimitEnforcedPerKey(t *testing.T) {
	env := newAPITestEnv(t, 3)

	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
			gin.H{"text": "Hello", "source_lang": "en", "target_lang": "es"})
		require.Equal(t, http.StatusOK, resp.Code, "request %d", i+1)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": "Hello", "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.Contains(t, errorMessage(t, resp), "Maximum 3 requests per minute")

	// a different key still has its own budget
	resp = env.do(t, http.MethodPost, "/api/v1/translate", "other-key",
		gin.H{"text": "Hello", "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestDetectEndpoint(t *testing.T) {
	env := newAPITestEnv(t, 100)
	env.engine.detection = translate.Detection{Language: "en", Confidence: 0.987654}

	resp := env.do(t, http.MethodPost, "/api/v1/detect", testAPIKey, gin.H{"text": "Hi"})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/v1/detect", testAPIKey, gin.H{"text": "Hello there"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Text         string  `json:"text"`
		DetectedLang string  `json:"detected_lang"`
		Confidence   float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "Hello there", body.Text)
	require.Equal(t, "en", body.DetectedLang)
	require.InDelta(t, 0.9877, body.Confidence, 1e-9)
	require.Greater(t, body.Confidence, 0.0)
	require.LessOrEqual(t, body.Confidence, 1.0)
}

func TestDetectBackendFailureReturns400(t *testing.T) {
	env := newAPITestEnv(t, 100)
	env.engine.detectErr = errors.New("cannot classify")

	resp := env.do(t, http.MethodPost, "/api/v1/detect", testAPIKey, gin.H{"text": "Hello there"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHistoryReturnsCallerRecordsNewestFirst(t *testing.T) {
	env := newAPITestEnv(t, 100)

	for _, text := range []string{"first", "second", "third"} {
		resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
			gin.H{"text": text, "source_lang": "en", "target_lang": "es"})
		require.Equal(t, http.StatusOK, resp.Code)
		time.Sleep(2 * time.Millisecond)
	}

	// another caller's record must not leak
	resp := env.do(t, http.MethodPost, "/api/v1/translate", "other-key",
		gin.H{"text": "theirs", "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/v1/history?limit=2", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var records []TranslationHistory
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &records))
	require.Len(t, records, 2)
	require.Equal(t, "third", records[0].SourceText)
	require.Equal(t, "second", records[1].SourceText)
}

func TestHistoryLimitValidation(t *testing.T) {
	env := newAPITestEnv(t, 100)

	for _, raw := range []string{"0", "1001", "abc", "-5"} {
		resp := env.do(t, http.MethodGet, "/api/v1/history?limit="+raw, testAPIKey, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code, "limit=%s", raw)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/history", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestTranslateBatchHistoryKeepsFirstElement(t *testing.T) {
	env := newAPITestEnv(t, 100)

	resp := env.do(t, http.MethodPost, "/api/v1/translate", testAPIKey,
		gin.H{"text": []string{"Hello", "Good morning"}, "source_lang": "en", "target_lang": "es"})
	require.Equal(t, http.StatusOK, resp.Code)

	records, err := env.server.history.ForCaller(context.Background(), testAPIKey, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Hello", records[0].SourceText)
	require.Equal(t, "es:Hello", records[0].TranslatedText)
}
