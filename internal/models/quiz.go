package models

// QuizQuestion is one multiple-choice question produced in quiz mode.
type QuizQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// QuizResult is the parsed output of quiz mode.
type QuizResult struct {
	Questions []QuizQuestion `json:"questions"`
}

func (QuizResult) Shape() OutputShape { return ShapeQuiz }

func (QuizResult) isParsedResult() {}
