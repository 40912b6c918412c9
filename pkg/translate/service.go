// Package translate coordinates language detection, translation, and history
// recording around an external engine.
package translate

import (
	"context"
	"fmt"
	"time"

	"github.com/polyglotd/polyglotd/pkg/validate"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultSourceLang is assumed when detection fails or nothing is detectable.
const DefaultSourceLang = "en"

// MinDetectLength is the minimum trimmed text length for /detect requests.
const MinDetectLength = 3

// ErrTextTooShort rejects detection input below MinDetectLength.
var ErrTextTooShort = fmt.Errorf("text must be at least %d characters", MinDetectLength)

// Request is one validated translation request.
type Request struct {
	Texts      []string
	SourceLang string
	TargetLang string
	CallerKey  string
}

// Result mirrors the request: Texts[i] is the translation of Request.Texts[i].
type Result struct {
	OriginalTexts []string
	Texts         []string
	SourceLang    string
	TargetLang    string
	Timestamp     time.Time
}

// HistoryEntry is the persisted record of one translation call.
type HistoryEntry struct {
	SourceText     string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	CallerKey      string
	Timestamp      time.Time
}

// Recorder appends one history entry per successful translation.
type Recorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

// Service orchestrates one translation request end to end.
type Service struct {
	backend   Backend
	validator *validate.Validator
	recorder  Recorder
	logger    zerolog.Logger
}

func NewService(backend Backend, validator *validate.Validator, recorder Recorder, logger zerolog.Logger) *Service {
	return &Service{
		backend:   backend,
		validator: validator,
		recorder:  recorder,
		logger:    logger,
	}
}

// Translate resolves the source language, translates every element in order,
// and records a single history entry. The output slice always has the same
// length and order as the input.
func (s *Service) Translate(ctx context.Context, req Request) (Result, error) {
	if !s.validator.SupportedLanguage(req.TargetLang) {
		return Result{}, &UnsupportedLanguageError{Code: req.TargetLang}
	}
	if req.SourceLang != "" && !s.validator.SupportedLanguage(req.SourceLang) {
		return Result{}, &UnsupportedLanguageError{Code: req.SourceLang}
	}

	texts := make([]string, len(req.Texts))
	for i, t := range req.Texts {
		texts[i] = s.validator.Sanitize(t)
	}

	sourceLang := req.SourceLang
	if len(texts) == 0 || (len(texts) == 1 && texts[0] == "") {
		if sourceLang == "" {
			sourceLang = DefaultSourceLang
		}
		return Result{
			OriginalTexts: texts,
			Texts:         make([]string, len(texts)),
			SourceLang:    sourceLang,
			TargetLang:    req.TargetLang,
			Timestamp:     time.Now().UTC(),
		}, nil
	}

	// All elements of a batch are assumed to share one source language, so
	// detection runs on the first element only.
	if sourceLang == "" {
		detection, err := s.backend.Detect(ctx, texts[0])
		if err != nil {
			s.logger.Debug().Err(err).Msg("language detection failed, defaulting source")
			sourceLang = DefaultSourceLang
		} else {
			sourceLang = detection.Language
		}
	}

	translated, err := s.translateAll(ctx, texts, sourceLang, req.TargetLang)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		OriginalTexts: texts,
		Texts:         translated,
		SourceLang:    sourceLang,
		TargetLang:    req.TargetLang,
		Timestamp:     time.Now().UTC(),
	}

	if s.recorder != nil {
		entry := HistoryEntry{
			SourceText:     texts[0],
			TranslatedText: translated[0],
			SourceLang:     sourceLang,
			TargetLang:     req.TargetLang,
			CallerKey:      req.CallerKey,
			Timestamp:      result.Timestamp,
		}
		if err := s.recorder.Record(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("record history: %w", err)
		}
	}

	return result, nil
}

// translateAll fans out one backend call per non-empty element. Result order
// matches input order regardless of completion order.
func (s *Service) translateAll(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	out := make([]string, len(texts))

	if sourceLang == targetLang {
		copy(out, texts)
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		if text == "" {
			continue
		}
		i, text := i, text
		g.Go(func() error {
			translated, err := s.backend.Translate(gctx, text, sourceLang, targetLang)
			if err != nil {
				return err
			}
			out[i] = translated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Detect sanitizes and length-checks the text, then asks the engine for the
// language. Unlike auto-detection during translate, failures surface here.
func (s *Service) Detect(ctx context.Context, text string) (string, Detection, error) {
	cleaned := s.validator.Sanitize(text)
	if len([]rune(cleaned)) < MinDetectLength {
		return cleaned, Detection{}, ErrTextTooShort
	}

	detection, err := s.backend.Detect(ctx, cleaned)
	if err != nil {
		return cleaned, Detection{}, err
	}
	return cleaned, detection, nil
}
