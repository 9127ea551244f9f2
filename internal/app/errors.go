package app

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidCredential    = errors.New("invalid email or password")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrMessageNotRateable   = errors.New("only assistant messages can be rated")
	ErrRatingAlreadySet     = errors.New("message already rated")
)
