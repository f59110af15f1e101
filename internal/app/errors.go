package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrQueueFull  = errors.New("scan queue is full")
	ErrInFlight   = errors.New("content already being analyzed")
)
