// Package pipelineerr holds the small set of sentinel errors spec.md §7's
// error taxonomy distinguishes by handling policy rather than by message:
// configuration errors fail fast and are never retried, processing errors
// surface to the queue's retry budget, and rate-limit signals are recorded
// but never retried inline. Callers wrap one of these with fmt.Errorf's
// %w and detect it later with errors.Is or the Is* helpers below.
package pipelineerr

import "errors"

// ErrConfiguration marks a misconfiguration caught at adapter construction
// or first use: a missing API key, an unknown vendor, a Granicus city with
// no view_id mapping. Per spec.md §7 these fail fast and are never retried.
var ErrConfiguration = errors.New("pipeline: configuration error")

// ErrProcessing marks a Tier-1 processing rejection — no extractable text,
// or text that failed the quality heuristics. Per spec.md §7 this is
// surfaced to the processing queue, which applies its own retry budget.
var ErrProcessing = errors.New("pipeline: processing error")

// ErrRateLimited marks a 429 or provider "overloaded" signal. Per spec.md
// §7 this is never retried inline — it indicates the rate limiter should
// have prevented the request — and is recorded rather than acted on.
var ErrRateLimited = errors.New("pipeline: rate limited")

// IsConfiguration reports whether err is, or wraps, a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsProcessing reports whether err is, or wraps, a processing error.
func IsProcessing(err error) bool { return errors.Is(err, ErrProcessing) }

// IsRateLimited reports whether err is, or wraps, a rate-limit signal.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
