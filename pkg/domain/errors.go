package domain

import "errors"

// ErrUnknownProvider is returned when removing a provider the registry does not hold.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrProviderClosed is returned by a provider whose backing connection was closed.
var ErrProviderClosed = errors.New("provider closed")

// ErrInvalidEndpoint is returned when a source yields an endpoint without an address.
var ErrInvalidEndpoint = errors.New("invalid endpoint")
