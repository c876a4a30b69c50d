package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DefaultEmotion is the enrichment value content carries before (or in the
// absence of) a successful analysis.
const DefaultEmotion = "neutral"

// EmotionScore is one emotion label with its classifier probability.
type EmotionScore struct {
	Emotion     string  `json:"emotion"`
	Probability float64 `json:"probability"`
}

// EmotionList is an ordered, probability-descending sequence of emotion
// scores, persisted as a JSON column.
type EmotionList []EmotionScore

// Value implements driver.Valuer.
func (e EmotionList) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (e *EmotionList) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported type %T for EmotionList", value)
	}
}

// Dominant returns the top-ranked emotion, or DefaultEmotion when the list is
// empty.
func (e EmotionList) Dominant() string {
	if len(e) == 0 {
		return DefaultEmotion
	}
	return e[0].Emotion
}
