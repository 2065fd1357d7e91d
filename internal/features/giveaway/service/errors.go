package service

import "errors"

var (
	// ErrMessageNotFound is returned by a Messenger when the target message
	// or its channel no longer exists.
	ErrMessageNotFound = errors.New("message not found")
)
