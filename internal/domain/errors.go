package domain

import "errors"

// Authentication and token errors. The endpoint layer maps every one of
// these to HTTP 401 with the error text as detail; only the message is
// surfaced to clients.
var (
	// ErrIdentityExists signals a duplicate email or Google subject on
	// registration.
	ErrIdentityExists = errors.New("the email has been registered, please log in with the email")

	// ErrIdentityNotFound signals a lookup miss for a locally-registered
	// account.
	ErrIdentityNotFound = errors.New("the email has not been registered, please sign up first")

	// ErrFederatedIdentityNotFound signals a lookup miss for a Google
	// linked account.
	ErrFederatedIdentityNotFound = errors.New("the google account has not been registered, please sign up first")

	// ErrInvalidCredentials signals a password mismatch.
	ErrInvalidCredentials = errors.New("password does not match the email entered")

	// ErrIdentifierMissing guards the invariant that a record carries at
	// least one login identifier. Unreachable through the public
	// operations.
	ErrIdentifierMissing = errors.New("there is no email or google account provided")

	// ErrTokenMalformed covers unparsable tokens and bad signatures.
	ErrTokenMalformed = errors.New("token is malformed or its signature is invalid")

	// ErrTokenExpired signals an exp claim at or before the current time.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenClaimMissing signals an absent sub, exp, or kind claim.
	ErrTokenClaimMissing = errors.New("token is missing a required claim")

	// ErrWrongTokenKind signals an access token presented where a refresh
	// token is required, or vice versa.
	ErrWrongTokenKind = errors.New("token kind mismatches")
)

// IsAuthError reports whether err belongs to the authentication taxonomy
// above. The endpoint layer uses it to decide between a 401 response and a
// generic server error.
func IsAuthError(err error) bool {
	for _, candidate := range []error{
		ErrIdentityExists,
		ErrIdentityNotFound,
		ErrFederatedIdentityNotFound,
		ErrInvalidCredentials,
		ErrIdentifierMissing,
		ErrTokenMalformed,
		ErrTokenExpired,
		ErrTokenClaimMissing,
		ErrWrongTokenKind,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
