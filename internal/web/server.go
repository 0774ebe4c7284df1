// ABOUTME: HTTP surface for the site: public pages plus the admin dashboard
// ABOUTME: Route registration, session cookies and CSRF protection

package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/jevicarn/site/internal/auth"
	"github.com/jevicarn/site/internal/gallery"
	"github.com/jevicarn/site/internal/store"
)

const (
	// SessionCookieName is the name of the admin session cookie
	SessionCookieName = "site_admin_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "site_admin_csrf"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "admin_session"

// Store combines the per-concern store interfaces the web surface needs.
type Store interface {
	store.CredentialStore
	store.Ledger
	store.GalleryStore
	store.AnalyticsStore
	store.VisitStore
}

// Server handles all site routes.
type Server struct {
	store   Store
	auth    *auth.Authenticator
	gallery *gallery.Manager
	content *Content
	logger  *slog.Logger
}

// NewServer creates the site HTTP server over the given collaborators.
func NewServer(st Store, authn *auth.Authenticator, galleryMgr *gallery.Manager, content *Content) *Server {
	return &Server{
		store:   st,
		auth:    authn,
		gallery: galleryMgr,
		content: content,
		logger:  slog.Default().With("component", "web"),
	}
}

// RegisterRoutes registers all site routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /home", s.handleHome)
	mux.HandleFunc("GET /gallery", s.handleGallery)
	mux.HandleFunc("GET /programs", s.handlePrograms)
	mux.HandleFunc("GET /contact", s.handleContactPage)
	mux.HandleFunc("POST /contact", s.handleContactPost)
	mux.HandleFunc("GET /uploads/{name}", s.handleUpload)
	mux.HandleFunc("GET /keepalive-ping", s.handleKeepAlivePing)

	// Admin entry point: dashboard with a session, login view without
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("GET /admin/{$}", s.handleAdmin)
	mux.HandleFunc("POST /admin/register", s.handleRegister)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.requireAuth(s.handleLogout))

	// Message management
	mux.HandleFunc("GET /admin/messages/thread/{sender}", s.requireAuth(s.handleMessageThread))
	mux.HandleFunc("POST /admin/messages/reply", s.requireAuth(s.handleMessageReply))
	mux.HandleFunc("POST /admin/messages/delete", s.requireAuth(s.handleMessageDelete))
	mux.HandleFunc("GET /admin/messages/export", s.requireAuth(s.handleMessageExport))

	// Gallery management
	mux.HandleFunc("POST /admin/gallery/upload", s.requireAuth(s.handleGalleryUpload))
	mux.HandleFunc("POST /admin/gallery/replace_ajax", s.requireAuth(s.handleGalleryReplaceAjax))
	mux.HandleFunc("POST /admin/gallery/delete", s.requireAuth(s.handleGalleryDelete))
	mux.HandleFunc("POST /admin/gallery/delete_ajax", s.requireAuth(s.handleGalleryDeleteAjax))

	s.logger.Info("site routes registered")
}

// requireAuth wraps a handler to require a valid admin session. Anonymous
// or expired sessions are redirected to /admin before any work happens.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// sessionFromRequest resolves the session cookie to a live session.
func (s *Server) sessionFromRequest(r *http.Request) (*auth.Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.auth.Lookup(cookie.Value)
}

// sessionFromContext retrieves the session placed by requireAuth.
func sessionFromContext(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionContextKey).(*auth.Session)
	return session
}

// setSessionCookie issues the session cookie after login or registration.
func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on logout.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ensureCSRFToken returns the double-submit CSRF token, minting and setting
// the cookie when absent.
func (s *Server) ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		s.logger.Error("failed to generate CSRF token", "error", err)
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF checks the form token against the cookie.
func (s *Server) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}
	return formToken != "" && formToken == cookie.Value
}

// redirectFlash redirects to /admin carrying a one-shot flash message.
func (s *Server) redirectFlash(w http.ResponseWriter, r *http.Request, flash string, isError bool) {
	v := url.Values{}
	if flash != "" {
		v.Set("flash", flash)
		if isError {
			v.Set("error", "1")
		}
	}
	target := "/admin"
	if encoded := v.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// clientIP extracts the remote IP, preferring the X-Forwarded-For header a
// hosting proxy sets.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// generateSecureToken generates a cryptographically secure random token.
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
