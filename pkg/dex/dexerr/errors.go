// Package dexerr defines the error taxonomy raised by the analysis
// pipeline (§7): malformed input, unsupported queries, invalid
// recommendations, index fetch failures, and run-level timeouts. None of
// these are fatal on their own — the runner records them and continues.
package dexerr

import "github.com/pkg/errors"

// Kind classifies a dex error for reporting purposes.
type Kind string

const (
	KindMalformedInput       Kind = "malformed_input"
	KindUnsupportedQuery     Kind = "unsupported_query"
	KindInvalidRecommendation Kind = "invalid_recommendation"
	KindIndexFetch           Kind = "index_fetch"
	KindTimeout              Kind = "timeout"
)

// Error wraps an underlying cause with a Kind so callers can distinguish
// which stage of the pipeline produced it without string-matching messages.
type Error struct {
	Kind Kind
	Line string
	err  error
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// MalformedInput wraps a parse failure on one raw input line or entry.
func MalformedInput(line string, err error) *Error {
	return &Error{Kind: KindMalformedInput, Line: line, err: errors.Wrap(err, "malformed input")}
}

// UnsupportedQuery reports a query that parsed but carries an operator or
// shape this module does not classify (§4.5/§4.3).
func UnsupportedQuery(ns string, err error) *Error {
	return &Error{Kind: KindUnsupportedQuery, Line: ns, err: errors.WithMessage(err, "unsupported query")}
}

// InvalidRecommendation reports a synthesized index shape that failed its
// round-trip validation (§4.8).
func InvalidRecommendation(shape string, err error) *Error {
	return &Error{Kind: KindInvalidRecommendation, Line: shape, err: errors.Wrap(err, "invalid recommendation")}
}

// IndexFetchFailed wraps a failure to list indexes for a collection (§4.9).
func IndexFetchFailed(namespace string, err error) *Error {
	return &Error{Kind: KindIndexFetch, Line: namespace, err: errors.Wrapf(err, "could not fetch indexes for %s", namespace)}
}

// Timeout reports that a run's wall-clock budget expired (§5/§7).
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, err: errors.Wrap(err, "run timed out")}
}
