package models

// FlashcardCard is a single front/back memory card.
type FlashcardCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is the parsed output of flashcard mode.
type FlashcardSet struct {
	Cards []FlashcardCard `json:"cards"`
}

func (FlashcardSet) Shape() OutputShape { return ShapeFlashcards }

func (FlashcardSet) isParsedResult() {}
