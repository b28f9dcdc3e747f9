package models

// TimestampLayout is the ISO-8601 layout used for record timestamps
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// TranslationRecord is one entry of the translation collection.
type TranslationRecord struct {
	ID             int    `json:"id"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	SourceLang     string `json:"sourceLang"`
	TargetLang     string `json:"targetLang"`
	Timestamp      string `json:"timestamp"`
}

// TranslationDraft carries the caller-supplied fields of a new record.
type TranslationDraft struct {
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	SourceLang     string `json:"sourceLang"`
	TargetLang     string `json:"targetLang"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// TranslationPatch is a partial update; nil fields are left untouched.
type TranslationPatch struct {
	SourceText     *string `json:"sourceText,omitempty"`
	TranslatedText *string `json:"translatedText,omitempty"`
	SourceLang     *string `json:"sourceLang,omitempty"`
	TargetLang     *string `json:"targetLang,omitempty"`
	Timestamp      *string `json:"timestamp,omitempty"`
}

// Apply merges the non-nil fields of p into r.
func (p TranslationPatch) Apply(r TranslationRecord) TranslationRecord {
	if p.SourceText != nil {
		r.SourceText = *p.SourceText
	}
	if p.TranslatedText != nil {
		r.TranslatedText = *p.TranslatedText
	}
	if p.SourceLang != nil {
		r.SourceLang = *p.SourceLang
	}
	if p.TargetLang != nil {
		r.TargetLang = *p.TargetLang
	}
	if p.Timestamp != nil {
		r.Timestamp = *p.Timestamp
	}
	return r
}
