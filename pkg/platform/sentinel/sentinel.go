package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, loaders and the ring
// navigation return these (optionally wrapped) so the transport layer can
// translate them into domain errors.
//
// - ErrNotFound: member slug or record does not exist
// - ErrUnavailable: backing store or registry temporarily unavailable
// - ErrInvalidInput: malformed input that never reaches a store (bad address, empty slug)
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
