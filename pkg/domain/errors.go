package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeNotFound is returned by outer surfaces when a node ID is unknown.
// The core itself treats unknown nodes as silent no-ops.
var ErrNodeNotFound = errors.New("node not found")

// ErrUnknownKind is returned when a tool kind is not part of the registry.
var ErrUnknownKind = errors.New("unknown tool kind")

// ErrInvalidParams is returned when generation parameters are missing or malformed.
var ErrInvalidParams = errors.New("invalid generation parameters")

// ErrGenerationFailed wraps any failure reported by a content generator.
var ErrGenerationFailed = errors.New("generation failed")

// ErrNotGenerative is returned when generation is requested for a kind that
// does not generate content (sources, sequencer).
var ErrNotGenerative = errors.New("tool kind does not generate content")

// ErrGenerationInFlight is returned when a node already has a pending generation.
var ErrGenerationInFlight = errors.New("generation already in progress")

// ErrNoOutput is returned when an operation needs a node output that has not been produced yet.
var ErrNoOutput = errors.New("node has no output")
