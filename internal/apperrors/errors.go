package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that a posting batch failed validation: it does not
// balance to zero per order, contains a zero amount, or uses a posting type
// the triggering event is not allowed to emit. Non-retryable; it points at a
// bug in event handling and is logged for investigation.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrStoreUnavailable indicates a transient storage failure. Callers retry
// with backoff; retries are safe because every write path is idempotent.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// ErrReconciliation indicates that an order event contradicts amounts already
// posted for the same order. Fatal: the order is flagged for manual operator
// review and excluded from automated reprocessing. Never auto-corrected.
var ErrReconciliation = errors.New("reconciliation conflict")

// ErrInvalidTransition indicates an order event that the state machine does
// not permit in the order's current state.
var ErrInvalidTransition = errors.New("invalid order state transition")
