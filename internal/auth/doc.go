// Package auth implements administrator authentication for the site.
//
// # Credentials
//
// Administrator passwords are hashed with bcrypt before they reach the
// store; plaintext never touches the database or the logs. Login compares
// hashes in constant time, running a dummy bcrypt comparison when the
// username is unknown so response timing cannot enumerate valid usernames.
//
// # Sessions
//
// Sessions are server-side and ephemeral: an in-memory table keyed by an
// opaque random token carried in a cookie. Sessions use a sliding 24-hour
// expiry, refreshed on every authenticated request, and are destroyed on
// logout or process restart. They are never written to durable storage.
//
// # Bootstrap
//
// While the credential store holds zero administrators the service is in
// bootstrap mode: one self-registration is permitted (or the admin is
// seeded from ADMIN_USER/ADMIN_PASS at startup). Once an administrator
// exists, registration is closed permanently.
package auth
