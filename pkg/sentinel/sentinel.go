// Package sentinel defines sentinel errors for infrastructure facts. Stores
// and platform layers return these (optionally wrapped) so services can
// translate them into domain errors without depending on store internals.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrExpired: record past its validity window
//   - ErrCorrupted: persisted bytes fail to parse or fail a checksum
//   - ErrInvalidState: entity in the wrong state for the requested operation
//   - ErrUnavailable: backing service temporarily unreachable
//
// For validation failures use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrCorrupted    = errors.New("corrupted")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
