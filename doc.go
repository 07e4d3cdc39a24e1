// Package auth implements store onboarding and session management for a
// multi-tenant retail backend.
//
// Sessions:
//   - SessionManager owns the single authenticated session of a process. It
//     restores a persisted session on Initialize, refreshes it on a fixed
//     interval and applies SIGNED_IN, SIGNED_OUT and TOKEN_REFRESHED
//     notifications pushed by the SessionBackend. Every transition is
//     serialized so observers always see a consistent SessionSnapshot.
//   - Backend failures are mapped by AuthErrorTranslator onto a closed set of
//     codes with localized messages (Portuguese by default).
//
// Provisioning:
//   - RegistrationSaga creates the owner identity, the store, the admin
//     membership and the audit record. A failed step undoes the completed
//     ones in reverse order and returns a SagaCompensationError.
//   - UserProvisioningSaga, ProductCatalog and StoreDirectory act on the store
//     owned by the acting identity, resolved through an ActingIdentityProvider.
//
// Activity:
//   - ActivityRecorder appends immutable audit records and forwards them to
//     ActivitySink implementations. Sinks run best-effort (errors are logged).
package auth
