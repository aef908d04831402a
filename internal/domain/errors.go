package domain

import "errors"

var (
	// ErrNoSession is returned when an identity has no quiz in progress.
	ErrNoSession = errors.New("no active quiz session")
	// ErrQuestionNotFound indicates the posed question id no longer resolves
	// in the question bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptyBank indicates the question bank contains no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrInvalidQuestion indicates a question violates a bank invariant.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownLanguage indicates a language tag outside the supported set.
	ErrUnknownLanguage = errors.New("unknown language")
)
