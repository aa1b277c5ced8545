package domain

import "errors"

var (
	// ErrGeneration is returned when the language model produced unusable content.
	ErrGeneration = errors.New("generated question is unusable")
	// ErrNoActiveQuestion is returned when a topic has no open question.
	ErrNoActiveQuestion = errors.New("no active question for topic")
	// ErrRoundInProgress is returned when a topic already hosts an open question.
	ErrRoundInProgress = errors.New("topic already has an open question")
	// ErrQuestionNotFound indicates an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionClosed is returned when mutating a question that is no longer open.
	ErrQuestionClosed = errors.New("question already answered")
	// ErrHintsExhausted is returned when every hint has already been revealed.
	ErrHintsExhausted = errors.New("no hints left")
	// ErrNotTriggered indicates a topic that does not ask for a quiz.
	ErrNotTriggered = errors.New("content does not contain the trigger phrase")
	// ErrNotRoundWinner is returned when someone other than the last winner picks a category.
	ErrNotRoundWinner = errors.New("only the last round winner can choose the category")
)
