package services

import (
	"fmt"
	"strings"
	"time"

	"revisia-backend/internal/models"
)

// Prompt is the system/user message pair sent for one generation.
type Prompt struct {
	System string
	User   string
	Shape  models.OutputShape
}

const markdownRule = "Format your whole answer in Markdown."

// PromptCompiler maps a mode and its input to the prompt pair. It reads no
// ambient state: today is only used by planning, which anchors the schedule
// to the real calendar.
type PromptCompiler struct{}

func (PromptCompiler) Compile(mode models.Mode, input string, opts models.GenerationOptions, today time.Time) (Prompt, error) {
	var system, user string

	switch mode {
	case models.ModeSummary:
		system = "You are an expert educator. Write a structured summary of the course material provided.\n" + markdownRule
		user = "Summarize this course:\n\n" + input
	case models.ModeSheet:
		system = "You are a teacher. Create a clear revision sheet with three sections: Definitions, Key formulas and dates, Main concepts.\n" + markdownRule
		user = "Make a revision sheet for:\n\n" + input
	case models.ModeQuiz:
		system, user = buildQuizPrompt(opts.QuestionCountOrDefault(), input)
	case models.ModeFlashcard:
		system = buildFlashcardSystemPrompt()
		user = "Create flashcards on this topic:\n\n" + input
	case models.ModeExplain:
		system = "You are a brilliant popularizer (ELI5 style). Explain the concept extremely simply, with concrete analogies, for a student who is struggling to understand it.\n" + markdownRule
		user = "Explain this to me simply:\n\n" + input
	case models.ModeImprove:
		system = "You are an expert in literature and writing. Fix the mistakes, improve the style and make the text smoother and more formal while keeping its original meaning. Show the corrected text first, then a list of the major improvements.\n" + markdownRule
		user = "Improve this text:\n\n" + input
	case models.ModeQA:
		system = "You are a kind and patient personal tutor. Answer the student's question precisely, giving examples when needed.\n" + markdownRule
		user = "Question:\n\n" + input
	case models.ModePlanning:
		system = buildPlanningSystemPrompt(today)
		user = "Here are my constraints and dates:\n\n" + input + "\n\nBuild my revision schedule step by step up to the exams."
	default:
		return Prompt{}, fmt.Errorf("no prompt for mode %q", mode)
	}

	system += languageLayer(opts.Language)

	return Prompt{System: system, User: user, Shape: mode.Shape()}, nil
}

func buildQuizPrompt(count int, input string) (string, string) {
	var b strings.Builder

	b.WriteString("You are a quiz generator. You MUST answer ONLY with a valid JSON object. No preamble, no markdown, no backticks.\n")
	b.WriteString(`Structure: {"questions": [{"text": "...", "options": ["...", "...", "...", "..."], "correctIndex": 0, "explanation": "..."}]}`)
	b.WriteString("\nEvery question has exactly 4 options; correctIndex is the 0-based index of the right option.\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.", count))

	return b.String(), fmt.Sprintf("Generate a quiz of %d questions about:\n\n%s", count, input)
}

func buildFlashcardSystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a flashcard creator. You MUST answer ONLY with a valid JSON object. No preamble, no markdown, no backticks.\n")
	b.WriteString(`Structure: {"cards": [{"front": "Question or term", "back": "Answer or definition"}]}`)
	b.WriteString("\nCreate 10 relevant cards for learning by heart.")

	return b.String()
}

func buildPlanningSystemPrompt(today time.Time) string {
	var b strings.Builder

	b.WriteString("You are an expert study coach.\n")
	b.WriteString("Your STRICT instructions:\n")
	b.WriteString(fmt.Sprintf("1. Today is %s (%s). The schedule must start TODAY.\n",
		today.Format("Monday 02/01/2006"), today.Format("2006-01-02")))
	b.WriteString("2. Analyse the exam dates provided.\n")
	b.WriteString("3. SPLIT the material to revise evenly across every available day until the exam.\n")
	b.WriteString("4. Insert precise revision slots (e.g. \"18:00-20:00: Chapter 1\") into the free time.\n")
	b.WriteString("5. Answer ONLY with a valid JSON object.\n")
	b.WriteString(`Structure: {"schedule": [{"day": "Monday 12/01", "tasks": ["..."], "focus": "..."}], "advice": "..."}`)

	return b.String()
}

func languageLayer(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" || strings.EqualFold(lang, "en") {
		return ""
	}
	return fmt.Sprintf("\nLanguage: Respond entirely in %s.", lang)
}
