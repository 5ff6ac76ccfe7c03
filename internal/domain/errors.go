package domain

import "errors"

var (
	ErrInvalidID             = errors.New("invalid id")
	ErrInvalidTimestamps     = errors.New("invalid timestamps")
	ErrInvalidTransition     = errors.New("invalid lifecycle transition")
	ErrInvalidLinks          = errors.New("invalid linked activity ids")
	ErrSelfLinkRejected      = errors.New("activity cannot link to itself")
	ErrDuplicateLinkRejected = errors.New("activity is already linked")
	ErrLinkCapacityExceeded  = errors.New("link capacity exceeded")
)
