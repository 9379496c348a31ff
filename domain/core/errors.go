package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Manifest resolution errors
	ErrAmbiguousIdentifier = errors.New("ambiguous sumstat identifier")
	ErrUnknownIdentifier   = errors.New("unknown sumstat identifier")

	// Result ingestion errors
	ErrMalformedLog = errors.New("malformed estimator log")
	ErrMissingJoin  = errors.New("result references unknown sumstat file")

	// Rendering errors
	ErrEmptyMatrix = errors.New("matrix has no rows or columns")
)

// Error constructors with context

func NewAmbiguousIdentifierError(displayName string, candidates int) error {
	return fmt.Errorf("%w: %q resolved to %d candidates", ErrAmbiguousIdentifier, displayName, candidates)
}

func NewUnknownIdentifierError(displayName string) error {
	return fmt.Errorf("%w: %q has no manifest entries", ErrUnknownIdentifier, displayName)
}

func NewMalformedLogError(path string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedLog, path, reason)
}

func NewMissingJoinError(filePath string) error {
	return fmt.Errorf("%w: %s", ErrMissingJoin, filePath)
}

// Error checking helpers

func IsAmbiguousIdentifier(err error) bool {
	return errors.Is(err, ErrAmbiguousIdentifier)
}

func IsUnknownIdentifier(err error) bool {
	return errors.Is(err, ErrUnknownIdentifier)
}

func IsMalformedLog(err error) bool {
	return errors.Is(err, ErrMalformedLog)
}

func IsMissingJoin(err error) bool {
	return errors.Is(err, ErrMissingJoin)
}
