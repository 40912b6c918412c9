package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Detection is the outcome of a language-detection call.
type Detection struct {
	Language   string
	Confidence float64
}

// Backend is the external detection/translation engine, consumed as a black box.
type Backend interface {
	Detect(ctx context.Context, text string) (Detection, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// HTTPBackend talks to a translation engine over its JSON API.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	Error          string `json:"error,omitempty"`
}

func (b *HTTPBackend) Detect(ctx context.Context, text string) (Detection, error) {
	var resp detectResponse
	if err := b.post(ctx, "/detect", detectRequest{Text: text}, &resp); err != nil {
		return Detection{}, &BackendError{Op: "detect", Err: err}
	}
	if resp.Error != "" {
		return Detection{}, &BackendError{Op: "detect", Err: fmt.Errorf("engine: %s", resp.Error)}
	}
	if resp.Language == "" {
		return Detection{}, &BackendError{Op: "detect", Err: fmt.Errorf("engine returned no language")}
	}
	return Detection{Language: resp.Language, Confidence: resp.Confidence}, nil
}

func (b *HTTPBackend) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var resp translateResponse
	req := translateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang}
	if err := b.post(ctx, "/translate", req, &resp); err != nil {
		return "", &BackendError{Op: "translate", Err: err}
	}
	if resp.Error != "" {
		return "", &BackendError{Op: "translate", Err: fmt.Errorf("engine: %s", resp.Error)}
	}
	return resp.TranslatedText, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned %d: %s", resp.StatusCode, truncateBody(data))
	}

	return json.Unmarshal(data, out)
}

func truncateBody(data []byte) string {
	const max = 256
	if len(data) > max {
		data = data[:max]
	}
	return string(data)
}
