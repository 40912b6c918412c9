package main

import (
	"context"

	"github.com/polyglotd/polyglotd/pkg/translate"
	"gorm.io/gorm"
)

// HistoryStore is the gorm-backed append/query log of translation requests.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record appends one history entry.
func (h *HistoryStore) Record(ctx context.Context, entry translate.HistoryEntry) error {
	record := TranslationHistory{
		SourceText:     entry.SourceText,
		TranslatedText: entry.TranslatedText,
		SourceLang:     entry.SourceLang,
		TargetLang:     entry.TargetLang,
		UserKey:        entry.CallerKey,
		Timestamp:      entry.Timestamp,
	}
	return h.db.WithContext(ctx).Create(&record).Error
}

// ForCaller returns the caller's records, newest first, truncated to limit.
func (h *HistoryStore) ForCaller(ctx context.Context, userKey string, limit int) ([]TranslationHistory, error) {
	var records []TranslationHistory
	err := h.db.WithContext(ctx).
		Where("user_key = ?", userKey).
		Order("timestamp desc").
		Limit(limit).
		Find(&records).Error
	return records, err
}
