package core

import "errors"

// ErrorCode classifies structured tool failures. Codes cross the
// dispatcher boundary as data, never as panics or raw errors.
type ErrorCode string

const (
	// CodeNotFound marks a referenced id that is absent from the
	// gallery. Batch operations treat this as partial and recoverable.
	CodeNotFound ErrorCode = "not_found"

	// CodeCacheMiss means no cached result set was available; the
	// operation fell back to the gallery or reported the miss.
	CodeCacheMiss ErrorCode = "cache_miss"

	// CodeCacheExpired means a cached result set existed but its TTL
	// had elapsed.
	CodeCacheExpired ErrorCode = "cache_expired"

	// CodeInvalidParameter marks malformed or out-of-range input.
	// The operation aborts cleanly without side effects.
	CodeInvalidParameter ErrorCode = "invalid_parameter"

	// CodeDispatchError marks a tool name outside the registered set.
	CodeDispatchError ErrorCode = "dispatch_error"

	// CodeOrchestrationTimeout marks an unresponsive model call; the
	// round is aborted without cache mutation.
	CodeOrchestrationTimeout ErrorCode = "orchestration_timeout"

	// CodeModelError marks a failed (non-timeout) model call.
	CodeModelError ErrorCode = "model_error"

	// CodeRoundLimitExceeded marks a turn that hit the orchestration
	// round cap.
	CodeRoundLimitExceeded ErrorCode = "round_limit_exceeded"
)

// ErrNotFound is returned by store lookups for unknown ids.
var ErrNotFound = errors.New("record not found")
