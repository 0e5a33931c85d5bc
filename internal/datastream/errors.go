package datastream

import "errors"

var (
	// ErrNoSubscription is returned by a Store that has nothing saved.
	ErrNoSubscription = errors.New("datastream: no saved subscription")

	// ErrUnauthorized means the stream service rejected the stream key.
	ErrUnauthorized = errors.New("datastream: stream key unauthorized")
)
