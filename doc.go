// Package identity manages the credential and identity lifecycle of an
// e-commerce backend: registration, email verification, login, password
// reset, and email-address change.
//
// The Lifecycle orchestrator is the entry point. It runs on four small
// contracts (CredentialStore, TokenCodec, PasswordHasher,
// NotificationGateway) so hosts can bring their own persistence and mail
// transport; a bun-backed CredentialStore ships as the reference
// implementation.
//
// State model:
//   - Accounts have no state column. The lifecycle state (unverified,
//     active, email-change-pending) is derived from the stored flags, and
//     a usable password only exists after some verification step set it.
//   - Tokens are signed, expiring JWTs carrying one of three tagged claim
//     variants. Each flow signs with its own key, so a reset token can
//     never be replayed as a session.
//   - Email changes resolve races optimistically: completion re-checks the
//     stored pending address and expiry, so the newest change request wins
//     and a superseded link fails as expired without any revocation list.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing lifecycle,
//     login, reset, and email-change events, plus courtesy notifications
//     that were dropped after a durable state change. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking the flows.
package identity
