package main

import "time"

// TranslationHistory is one persisted translation request. Records are
// immutable once written; for batched requests only the first element of the
// batch is stored.
type TranslationHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SourceText     string    `gorm:"type:text" json:"source_text"`
	TranslatedText string    `gorm:"type:text" json:"translated_text"`
	SourceLang     string    `gorm:"size:10" json:"source_lang"`
	TargetLang     string    `gorm:"size:10" json:"target_lang"`
	UserKey        string    `gorm:"size:100;index" json:"-"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
}
