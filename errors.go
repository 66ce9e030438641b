package identity

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeEmailRegistered     = "identity_email_registered"
	TextCodeNotFound            = "identity_not_found"
	TextCodeInvalidCredentials  = "identity_invalid_credentials"
	TextCodeAccountDeactivated  = "identity_account_deactivated"
	TextCodeTokenInvalid        = "identity_token_invalid"
	TextCodeTokenExpired        = "identity_token_expired"
	TextCodeAlreadyVerified     = "identity_already_verified"
	TextCodePasswordRequired    = "identity_password_required"
	TextCodeInvalidPassword     = "identity_invalid_password"
	TextCodeEmailTaken          = "identity_email_taken"
	TextCodeEmailUnchanged      = "identity_email_unchanged"
	TextCodeDeliveryUnavailable = "identity_delivery_unavailable"
)

// ErrEmailRegistered is returned by Register when the address already
// belongs to an account.
var ErrEmailRegistered = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailRegistered).
	WithCode(goerrors.CodeConflict)

// ErrIdentityNotFound is returned when the referenced account does not exist.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidCredentials is the single login failure for unknown accounts,
// unverified accounts, missing passwords, and hash mismatches. Collapsing
// them keeps login from acting as an account enumeration oracle, and the
// 400-class code avoids distinguishing it from plain bad input.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountDeactivated is returned when credentials check out but the
// account has been administratively deactivated. Checked after credential
// validation so deactivated accounts never learn the password was right.
var ErrAccountDeactivated = goerrors.New("account is deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(goerrors.CodeForbidden)

// ErrTokenInvalid is returned for signature or shape mismatches. Clients
// treat it the same as ErrTokenExpired ("request a new link"); the text
// codes keep the two distinguishable internally.
var ErrTokenInvalid = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their TTL, and for
// cryptographically valid email-change tokens superseded by a newer
// change request.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyVerified is returned when verification is re-attempted on a
// verified account.
var ErrAlreadyVerified = goerrors.New("email already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeConflict)

// ErrPasswordRequired is returned by UpdateEmail when the account has not
// completed verification and therefore has no password to check.
var ErrPasswordRequired = goerrors.New("account has no password set", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordRequired).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPassword is returned when the supplied current password does
// not match the stored hash.
var ErrInvalidPassword = goerrors.New("invalid password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned by UpdateEmail when another account owns the
// requested address.
var ErrEmailTaken = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrEmailUnchanged is returned when the requested address equals the
// account's current one.
var ErrEmailUnchanged = goerrors.New("new email matches current email", goerrors.CategoryBadInput).
	WithTextCode(TextCodeEmailUnchanged).
	WithCode(goerrors.CodeBadRequest)

// ErrDeliveryUnavailable is returned by notification gateways on transport
// failure. It propagates only when the notification is the deliverable;
// courtesy mails swallow it (see Lifecycle.notifyBestEffort).
var ErrDeliveryUnavailable = goerrors.New("notification delivery unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeDeliveryUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString rejects empty secrets before hashing
var ErrNoEmptyString = errors.New("cannot hash an empty string")

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// IsTokenError reports whether the error belongs to the "request a new
// link" class callers branch on, covering both expired and malformed.
func IsTokenError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenExpired || richErr.TextCode == TextCodeTokenInvalid
	}
	return false
}

// HasTextCode checks an error chain for a rich error carrying the code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
