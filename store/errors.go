package store

import "errors"

// Failure modes surfaced to every caller, per the C1 contract: Conflict
// (optimistic lease lost), NotFound, Integrity (uniqueness violated on
// insert, or an invariant the schema enforces).
var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: conflict")
	ErrIntegrity = errors.New("store: integrity violation")
)

const pgUniqueViolation = "23505"
