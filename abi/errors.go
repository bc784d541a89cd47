package abi

import "errors"

// Sentinel errors for the ABI type builder, codec, and facade. Callers
// should use errors.Is against these; the wrapped message carries the
// offending type string, field name, or byte offset.
var (
	ErrMalformedType     = errors.New("abi: malformed type string")
	ErrUnknownBase       = errors.New("abi: unknown base kind")
	ErrValueShape        = errors.New("abi: value does not match type")
	ErrBufferUnderrun    = errors.New("abi: buffer underrun")
	ErrPointerOutOfRange = errors.New("abi: pointer out of range")
	ErrUnknownFunction   = errors.New("abi: unknown function")
	ErrUnknownEvent      = errors.New("abi: unknown event")
)
