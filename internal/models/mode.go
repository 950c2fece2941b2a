package models

import "fmt"

// Mode is one of the fixed generation tasks offered by the assistant.
type Mode string

const (
	ModeSummary   Mode = "summary"
	ModeSheet     Mode = "sheet"
	ModeQuiz      Mode = "quiz"
	ModeFlashcard Mode = "flashcard"
	ModeExplain   Mode = "explain"
	ModeImprove   Mode = "improve"
	ModeQA        Mode = "qa"
	ModePlanning  Mode = "planning"
)

// OutputShape is the structure a mode's model output must parse into.
type OutputShape string

const (
	ShapeProse      OutputShape = "prose"
	ShapeQuiz       OutputShape = "quiz"
	ShapeFlashcards OutputShape = "flashcards"
	ShapeSchedule   OutputShape = "schedule"
)

// ResultKind is how a raw result is stored in history.
type ResultKind string

const (
	ResultText ResultKind = "text"
	ResultJSON ResultKind = "json"
)

// AllModes lists every mode in display order.
var AllModes = []Mode{
	ModeSummary,
	ModeSheet,
	ModeQuiz,
	ModeFlashcard,
	ModeExplain,
	ModeImprove,
	ModeQA,
	ModePlanning,
}

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	m := Mode(raw)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", raw)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeSummary, ModeSheet, ModeQuiz, ModeFlashcard, ModeExplain, ModeImprove, ModeQA, ModePlanning:
		return true
	}
	return false
}

// Free reports whether non-premium users may run this mode.
func (m Mode) Free() bool {
	switch m {
	case ModeSummary, ModeExplain, ModeQA:
		return true
	case ModeSheet, ModeQuiz, ModeFlashcard, ModeImprove, ModePlanning:
		return false
	}
	return false
}

// Shape returns the output structure the mode's prompt asks the model for.
func (m Mode) Shape() OutputShape {
	switch m {
	case ModeQuiz:
		return ShapeQuiz
	case ModeFlashcard:
		return ShapeFlashcards
	case ModePlanning:
		return ShapeSchedule
	case ModeSummary, ModeSheet, ModeExplain, ModeImprove, ModeQA:
		return ShapeProse
	}
	return ShapeProse
}

// Structured reports whether the shape is a single JSON object.
func (s OutputShape) Structured() bool {
	return s == ShapeQuiz || s == ShapeFlashcards || s == ShapeSchedule
}

// ResultKind returns how results of this shape are persisted.
func (s OutputShape) ResultKind() ResultKind {
	if s.Structured() {
		return ResultJSON
	}
	return ResultText
}

// ModeInfo describes a mode for clients.
type ModeInfo struct {
	Mode   Mode        `json:"mode"`
	Shape  OutputShape `json:"shape"`
	Free   bool        `json:"free"`
	Locked bool        `json:"locked"`
}
