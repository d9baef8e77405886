package server

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// ChatError is a classified failure raised while handling an event.
// Message is always safe to show to clients; Err may carry internal detail.
type ChatError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *ChatError {
	return &ChatError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) *ChatError {
	return &ChatError{Kind: KindNotFound, Message: message}
}

func NewStorageError(message string, err error) *ChatError {
	return &ChatError{Kind: KindStorage, Message: message, Err: err}
}

var ErrUnknownEventKind = NewValidationError("Invalid message type")

const serverErrorText = "Server error"

// clientErrorText maps err to the text sent in an error event.
func clientErrorText(err error) string {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}

	return serverErrorText
}

// IsKind reports whether err is a ChatError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var chatErr *ChatError
	return errors.As(err, &chatErr) && chatErr.Kind == k
}
