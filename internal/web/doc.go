// Package web is the HTTP surface of the site.
//
// # Public pages
//
// Home, gallery, programs and contact are rendered from embedded
// html/template files with metadata from an embedded TOML file; the
// programs page body is embedded markdown rendered at startup. Public page
// views are recorded as visit events for the dashboard.
//
// # Admin dashboard
//
// /admin is the single entry point: with a valid session cookie it renders
// the dashboard (message stats, top contacts, recent activity, gallery
// management); without one it renders the login view, or the one-time
// registration view while no administrator exists. Every mutating route
// sits behind the session middleware and a double-submit CSRF check.
//
// # Uploads
//
// Gallery artifacts are served from /uploads/{name} after a containment
// check against the managed upload directory.
package web
