package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoVerifications is returned when adjudication is asked to reduce zero verdict sets
var ErrNoVerifications = errors.New("no verifications to adjudicate")

// ExtractionFormatError reports extractor output that does not fit the claim schema
type ExtractionFormatError struct {
	Reason string
	Raw    string // Raw judgment output, truncated
	Err    error
}

func (e *ExtractionFormatError) Error() string {
	msg := "extraction format error: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionFormatError) Unwrap() error {
	return e.Err
}

// VerdictFormatError reports verifier output that does not fit the verdict schema
type VerdictFormatError struct {
	VerifierID string
	Reason     string
	Raw        string
	Err        error
}

func (e *VerdictFormatError) Error() string {
	msg := fmt.Sprintf("verdict format error (%s): %s", e.VerifierID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VerdictFormatError) Unwrap() error {
	return e.Err
}

// CoverageMismatchError reports a verdict set that is not a bijection with the claim list
type CoverageMismatchError struct {
	VerifierID string
	Missing    []string // Claim ids without a verdict
	Extra      []string // Verdict claim ids not in the claim list
	Duplicates []string // Claim ids judged more than once
}

func (e *CoverageMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing verdicts for ["+strings.Join(e.Missing, ", ")+"]")
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "extra verdicts for ["+strings.Join(e.Extra, ", ")+"]")
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, "duplicate verdicts for ["+strings.Join(e.Duplicates, ", ")+"]")
	}
	return fmt.Sprintf("coverage mismatch from verifier %s: %s", e.VerifierID, strings.Join(parts, "; "))
}

// MissingVerdictsError reports claims that received no verdict from any verifier
type MissingVerdictsError struct {
	ClaimIDs []string
}

func (e *MissingVerdictsError) Error() string {
	return "no verdicts for claims: " + strings.Join(e.ClaimIDs, ", ")
}

// Truncate shortens s to at most n bytes for inclusion in error messages,
// cutting on a rune boundary
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
