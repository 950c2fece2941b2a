package services

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"revisia-backend/internal/models"
)

const (
	quizOptionCount = 4
	snippetLength   = 200
)

// ResponseParser turns raw model text into the typed result for a mode.
// Checks are structural only: right keys, right types, options count and
// answer index bounds. Content quality is not judged.
type ResponseParser struct{}

func (ResponseParser) Parse(mode models.Mode, raw string, shape models.OutputShape) (models.ParsedResult, error) {
	if shape != mode.Shape() {
		return nil, &InvalidModelOutputError{Mode: mode, Snippet: snippet(raw, snippetLength), Reason: fmt.Sprintf("shape %s does not belong to mode", shape)}
	}

	switch shape {
	case models.ShapeProse:
		return models.ProseResult{HTML: RenderMarkdown(raw)}, nil
	case models.ShapeQuiz:
		var w quizWire
		if err := decodeStructured(raw, &w); err != nil {
			return nil, invalidOutput(mode, raw, err)
		}
		return w.toModel(), nil
	case models.ShapeFlashcards:
		var w flashcardWire
		if err := decodeStructured(raw, &w); err != nil {
			return nil, invalidOutput(mode, raw, err)
		}
		return w.toModel(), nil
	case models.ShapeSchedule:
		var w scheduleWire
		if err := decodeStructured(raw, &w); err != nil {
			return nil, invalidOutput(mode, raw, err)
		}
		return w.toModel(), nil
	}

	return nil, &InvalidModelOutputError{Mode: mode, Snippet: snippet(raw, snippetLength), Reason: fmt.Sprintf("unknown shape %q", shape)}
}

func invalidOutput(mode models.Mode, raw string, err error) error {
	return &InvalidModelOutputError{Mode: mode, Snippet: snippet(raw, snippetLength), Reason: err.Error()}
}

// decodeStructured strips a surrounding ```json fence, decodes a single JSON
// object and validates it.
func decodeStructured(raw string, dst validation.Validatable) error {
	text := stripCodeFence(raw)
	if text == "" {
		return fmt.Errorf("empty output")
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("not a JSON object of the expected shape: %w", err)
	}
	return dst.Validate()
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Wire types use pointers so a missing or null key is distinguishable from a zero value.

type quizWire struct {
	Questions *[]quizQuestionWire `json:"questions"`
}

func (w *quizWire) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Questions, validation.NotNil),
	)
}

func (w *quizWire) toModel() models.QuizResult {
	out := models.QuizResult{Questions: make([]models.QuizQuestion, 0, len(*w.Questions))}
	for _, q := range *w.Questions {
		out.Questions = append(out.Questions, models.QuizQuestion{
			Text:         *q.Text,
			Options:      *q.Options,
			CorrectIndex: *q.CorrectIndex,
			Explanation:  *q.Explanation,
		})
	}
	return out
}

type quizQuestionWire struct {
	Text         *string   `json:"text"`
	Options      *[]string `json:"options"`
	CorrectIndex *int      `json:"correctIndex"`
	Explanation  *string   `json:"explanation"`
}

func (q quizQuestionWire) Validate() error {
	n := 0
	if q.Options != nil {
		n = len(*q.Options)
	}
	return validation.ValidateStruct(&q,
		validation.Field(&q.Text, validation.NotNil),
		validation.Field(&q.Options,
			validation.NotNil,
			validation.Required.Error(fmt.Sprintf("must have exactly %d options", quizOptionCount)),
			validation.Length(quizOptionCount, quizOptionCount).Error(fmt.Sprintf("must have exactly %d options", quizOptionCount)),
		),
		validation.Field(&q.CorrectIndex,
			validation.NotNil,
			validation.Min(0),
			validation.Max(n-1).Error("must point at one of the options"),
		),
		validation.Field(&q.Explanation, validation.NotNil),
	)
}

type flashcardWire struct {
	Cards *[]flashcardCardWire `json:"cards"`
}

func (w *flashcardWire) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Cards, validation.NotNil),
	)
}

func (w *flashcardWire) toModel() models.FlashcardSet {
	out := models.FlashcardSet{Cards: make([]models.FlashcardCard, 0, len(*w.Cards))}
	for _, c := range *w.Cards {
		out.Cards = append(out.Cards, models.FlashcardCard{Front: *c.Front, Back: *c.Back})
	}
	return out
}

type flashcardCardWire struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

func (c flashcardCardWire) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Front, validation.NotNil),
		validation.Field(&c.Back, validation.NotNil),
	)
}

type scheduleWire struct {
	Schedule *[]scheduleDayWire `json:"schedule"`
	Advice   *string            `json:"advice"`
}

func (w *scheduleWire) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Schedule, validation.NotNil),
		validation.Field(&w.Advice, validation.NotNil),
	)
}

func (w *scheduleWire) toModel() models.Schedule {
	out := models.Schedule{Days: make([]models.ScheduleDay, 0, len(*w.Schedule)), Advice: *w.Advice}
	for _, d := range *w.Schedule {
		out.Days = append(out.Days, models.ScheduleDay{Day: *d.Day, Tasks: *d.Tasks, Focus: *d.Focus})
	}
	return out
}

type scheduleDayWire struct {
	Day   *string   `json:"day"`
	Tasks *[]string `json:"tasks"`
	Focus *string   `json:"focus"`
}

func (d scheduleDayWire) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Day, validation.NotNil),
		validation.Field(&d.Tasks, validation.NotNil),
		validation.Field(&d.Focus, validation.NotNil),
	)
}
