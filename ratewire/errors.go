package ratewire

import "errors"

// Kind buckets the errors this package returns.
//
// Kinds and rule identifiers are stable across versions; Error() text is
// free to change. Callers branch on Kind or RuleID, never on message
// strings, extracting *Error with errors.As when they need both.
type Kind string

const (
	// KindValidation marks malformed constructor input. Surfaced
	// immediately, never retried.
	KindValidation Kind = "Validation"

	// KindParse marks malformed decode input. Decoding aborts; no partial
	// entity is ever returned.
	KindParse Kind = "Parse"

	// KindCompare marks a comparison the canonical order deliberately
	// leaves undefined.
	KindCompare Kind = "Compare"

	// KindChain marks invalid chain construction.
	KindChain Kind = "Chain"

	// KindCrypto marks signing provider failures.
	KindCrypto Kind = "Crypto"

	KindInternal Kind = "Internal"
)

// Rule identifiers named by the errors this package returns.
const (
	// RuleAllocationAsset rejects an allocation without an asset, or one
	// built as a bare zero value.
	RuleAllocationAsset = "RATEWIRE-VAL-100"
	// RuleAllocationAmount rejects a negative or missing amount.
	RuleAllocationAmount = "RATEWIRE-VAL-101"
	// RuleDuplicateAsset rejects payloads naming the same asset twice.
	RuleDuplicateAsset = "RATEWIRE-VAL-102"
	// RuleNilPayload rejects a missing payload.
	RuleNilPayload = "RATEWIRE-VAL-103"
	// RuleAmountWidth rejects amounts too wide for the coins wire form.
	RuleAmountWidth = "RATEWIRE-VAL-104"

	// RuleWireTag marks an unrecognized asset wire tag met during decode.
	RuleWireTag = "RATEWIRE-PARSE-101"
	// RuleLengthMismatch marks decoded asset/amount sequences of unequal
	// length.
	RuleLengthMismatch = "RATEWIRE-PARSE-201"
	// RuleMalformed marks any other undecodable payload or chain input.
	RuleMalformed = "RATEWIRE-PARSE-001"

	// RuleUnsupportedComparison marks the deliberate extra-currency
	// ordering gap.
	RuleUnsupportedComparison = "RATEWIRE-CMP-001"

	// RuleEmptyChain rejects chain construction from zero payloads.
	RuleEmptyChain = "RATEWIRE-CHAIN-001"

	// RuleSignerFailed wraps signing provider errors.
	RuleSignerFailed = "RATEWIRE-CRYPTO-001"
	// RuleSignatureSize rejects signatures of the wrong length.
	RuleSignatureSize = "RATEWIRE-CRYPTO-002"
)

// Error pairs a Kind with the rule identifier naming the violated rule
// (RATEWIRE-VAL-102, RATEWIRE-PARSE-201, ...). Message is for humans and
// carries no stability promise.
type Error struct {
	// Kind and RuleID are the stable matching surface.
	Kind   Kind
	RuleID string

	// Message is display text; Cause preserves the underlying error for
	// errors.Is chains.
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e != nil {
		return e.Message
	}
	return "<nil>"
}

func (e *Error) Unwrap() error {
	if e != nil {
		return e.Cause
	}
	return nil
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := asError(err)
	return ok && e.Kind == kind
}

// RuleID extracts the stable rule identifier from err, or "" when err does
// not carry one.
func RuleID(err error) string {
	if e, ok := asError(err); ok {
		return e.RuleID
	}
	return ""
}
