package services

import "errors"

var (
	// ErrInvalidInput wraps every validation failure raised by a service.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotEnoughQuestions means the bank has fewer matches than requested.
	ErrNotEnoughQuestions = errors.New("not enough questions")
)
