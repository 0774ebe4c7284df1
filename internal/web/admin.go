// ABOUTME: Admin dashboard handlers: auth flows, message management, gallery management
// ABOUTME: Everything mutating sits behind requireAuth and CSRF validation

package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jevicarn/site/internal/auth"
	"github.com/jevicarn/site/internal/gallery"
	"github.com/jevicarn/site/internal/store"
)

// maxUploadBytes bounds gallery upload parsing.
const maxUploadBytes = 32 << 20

// csvHeader is the fixed column order of the message export.
var csvHeader = []string{"id", "sender", "receiver", "text", "filename", "seen", "location", "platform", "timestamp"}

// handleAdmin serves the admin entry point: the dashboard when the session
// is valid, otherwise the login (or bootstrap registration) view.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if session, ok := s.sessionFromRequest(r); ok {
		s.renderDashboard(w, r, session)
		return
	}
	s.renderLogin(w, r, r.URL.Query().Get("flash"), r.URL.Query().Get("error") == "1")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, flash string, isError bool) {
	count, err := s.store.CountAdmins(r.Context())
	if err != nil {
		s.logger.Error("failed to count admins", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, "admin_login.html", loginData{
		Site:             s.content.Site,
		Meta:             PageMeta{Title: "Administrator"},
		Flash:            flash,
		FlashError:       isError,
		CSRFToken:        s.ensureCSRFToken(w, r),
		RegistrationOpen: count == 0,
	})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	ctx := r.Context()

	data := dashboardData{
		Site:       s.content.Site,
		Meta:       PageMeta{Title: "Dashboard"},
		Flash:      r.URL.Query().Get("flash"),
		FlashError: r.URL.Query().Get("error") == "1",
		CSRFToken:  s.ensureCSRFToken(w, r),
		Username:   session.Username,
	}

	var err error
	if data.Stats.Messages, err = s.store.CountMessages(ctx); err != nil {
		s.logger.Error("failed to count messages", "error", err)
	}
	if data.Stats.Senders, err = s.store.CountDistinctSenders(ctx, session.Username); err != nil {
		s.logger.Error("failed to count senders", "error", err)
	}
	if data.Stats.Visits, err = s.store.CountVisits(ctx); err != nil {
		s.logger.Error("failed to count visits", "error", err)
	}
	if data.TopSenders, err = s.store.TopSenders(ctx, 5, session.Username); err != nil {
		s.logger.Error("failed to load top senders", "error", err)
	}
	if data.Locations, err = s.store.CountByLocation(ctx); err != nil {
		s.logger.Error("failed to group by location", "error", err)
	}
	if data.Platforms, err = s.store.CountByPlatform(ctx); err != nil {
		s.logger.Error("failed to group by platform", "error", err)
	}
	if data.Recent, err = s.store.RecentActivity(ctx, 10); err != nil {
		s.logger.Error("failed to load recent activity", "error", err)
	}
	if data.Items, err = s.store.ListGalleryItems(ctx); err != nil {
		s.logger.Error("failed to list gallery items", "error", err)
	}
	data.Stats.GalleryItems = len(data.Items)

	s.render(w, "admin_dashboard.html", data)
}

// handleRegister creates the bootstrap administrator. Open only while the
// credential store is empty.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.renderLogin(w, r, "Invalid request, please try again", true)
		return
	}

	_, err := s.auth.Register(r.Context(),
		uuid.NewString(),
		r.FormValue("username"),
		r.FormValue("password"),
		r.FormValue("confirm"),
	)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			s.renderLogin(w, r, "Passwords do not match", true)
		case errors.Is(err, auth.ErrRegistrationClosed):
			s.renderLogin(w, r, "Registration is closed", true)
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.renderLogin(w, r, "Username and password required", true)
		default:
			s.logger.Error("registration failed", "error", err)
			s.renderLogin(w, r, "An error occurred", true)
		}
		return
	}

	s.startSession(w, r, r.FormValue("username"))
}

// handleLogin processes the login form. All credential failures flash the
// same non-specific message.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.renderLogin(w, r, "Invalid request, please try again", true)
		return
	}

	username := r.FormValue("username")
	_, err := s.auth.Login(r.Context(), username, r.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoAdminExists):
			s.renderLogin(w, r, "No administrator account exists yet", true)
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.renderLogin(w, r, "Invalid username or password", true)
		default:
			s.logger.Error("login failed", "error", err)
			s.renderLogin(w, r, "An error occurred", true)
		}
		return
	}

	s.startSession(w, r, username)
}

// startSession issues a session for an authenticated username and lands on
// the dashboard.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, username string) {
	token, err := s.auth.IssueSession(username)
	if err != nil {
		s.logger.Error("failed to issue session", "error", err)
		s.renderLogin(w, r, "An error occurred", true)
		return
	}

	s.setSessionCookie(w, r, token)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		s.auth.Logout(cookie.Value)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleMessageThread shows the conversation with one sender. Opening the
// thread marks that sender's messages seen.
func (s *Server) handleMessageThread(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	sender := r.PathValue("sender")
	if sender == "" {
		s.redirectFlash(w, r, "Unknown conversation", true)
		return
	}

	if err := s.store.MarkSeen(r.Context(), sender); err != nil {
		s.logger.Error("failed to mark thread seen", "sender", sender, "error", err)
	}

	messages, err := s.store.ListThread(r.Context(), sender)
	if err != nil {
		s.logger.Error("failed to load thread", "sender", sender, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, "admin_thread.html", threadData{
		Site:      s.content.Site,
		Meta:      PageMeta{Title: "Conversation"},
		CSRFToken: s.ensureCSRFToken(w, r),
		Username:  session.Username,
		Sender:    sender,
		Messages:  messages,
	})
}

// handleMessageReply stores an admin reply and marks the thread seen.
func (s *Server) handleMessageReply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.redirectFlash(w, r, "Invalid request, please try again", true)
		return
	}

	session := sessionFromContext(r)
	receiver := r.FormValue("receiver")
	text := r.FormValue("text")
	if receiver == "" || text == "" {
		s.redirectFlash(w, r, "Recipient and reply text required", true)
		return
	}

	msg := &store.Message{
		ID:        uuid.NewString(),
		Sender:    session.Username,
		Receiver:  receiver,
		Text:      text,
		Seen:      true,
		Timestamp: time.Now(),
	}
	if err := s.store.CreateMessage(r.Context(), msg); err != nil {
		s.logger.Error("failed to save reply", "error", err)
		s.redirectFlash(w, r, "Failed to send reply", true)
		return
	}

	if err := s.store.MarkSeen(r.Context(), receiver); err != nil {
		s.logger.Error("failed to mark thread seen", "sender", receiver, "error", err)
	}

	s.redirectFlash(w, r, "Reply sent", false)
}

func (s *Server) handleMessageDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.redirectFlash(w, r, "Invalid request, please try again", true)
		return
	}

	if err := s.store.DeleteMessage(r.Context(), r.FormValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirectFlash(w, r, "Message not found", true)
			return
		}
		s.logger.Error("failed to delete message", "error", err)
		s.redirectFlash(w, r, "Failed to delete message", true)
		return
	}

	s.redirectFlash(w, r, "Message deleted", false)
}

// handleMessageExport streams the full ledger as CSV in insertion order.
func (s *Server) handleMessageExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="messages.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		s.logger.Error("failed to write CSV header", "error", err)
		return
	}

	for msg, err := range s.store.Messages(r.Context()) {
		if err != nil {
			s.logger.Error("failed streaming messages for export", "error", err)
			return
		}
		record := []string{
			msg.ID,
			msg.Sender,
			msg.Receiver,
			msg.Text,
			msg.Filename,
			strconv.FormatBool(msg.Seen),
			msg.Location,
			msg.Platform,
			msg.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			s.logger.Error("failed to write CSV record", "error", err)
			return
		}
	}
	cw.Flush()
}

func (s *Server) handleGalleryUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil || !s.validateCSRF(r) {
		s.redirectFlash(w, r, "Invalid request, please try again", true)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.redirectFlash(w, r, "An image file is required", true)
		return
	}
	defer file.Close()

	_, err = s.gallery.Upload(r.Context(), file, header.Filename, r.FormValue("caption"))
	if err != nil {
		if errors.Is(err, gallery.ErrUnsupportedType) {
			s.redirectFlash(w, r, "Unsupported image type", true)
			return
		}
		s.logger.Error("gallery upload failed", "error", err)
		s.redirectFlash(w, r, "Upload failed", true)
		return
	}

	s.redirectFlash(w, r, "Photo uploaded", false)
}

func (s *Server) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.redirectFlash(w, r, "Invalid request, please try again", true)
		return
	}

	receipt, err := s.gallery.Delete(r.Context(), r.FormValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirectFlash(w, r, "Photo not found", true)
			return
		}
		s.logger.Error("gallery delete failed", "error", err)
		s.redirectFlash(w, r, "Delete failed", true)
		return
	}

	if receipt.Warning != nil {
		s.redirectFlash(w, r, "Photo removed, but its file could not be deleted", true)
		return
	}
	s.redirectFlash(w, r, "Photo deleted", false)
}

// ajaxResponse is the JSON shape shared by the _ajax gallery endpoints.
type ajaxResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Warning  string `json:"warning,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp ajaxResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// handleGalleryReplaceAjax swaps the image behind an existing gallery item.
func (s *Server) handleGalleryReplaceAjax(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil || !s.validateCSRF(r) {
		s.writeJSON(w, http.StatusBadRequest, ajaxResponse{Error: "invalid request"})
		return
	}

	id := r.FormValue("id")
	item, err := s.store.GetGalleryItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, ajaxResponse{Error: "not found"})
			return
		}
		s.logger.Error("gallery lookup failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ajaxResponse{Error: "internal error"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ajaxResponse{Error: "an image file is required"})
		return
	}
	defer file.Close()

	receipt, err := s.gallery.Replace(r.Context(), id, item.Filename, file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, gallery.ErrUnsupportedType):
			s.writeJSON(w, http.StatusBadRequest, ajaxResponse{Error: "unsupported image type"})
		case errors.Is(err, store.ErrReplaceConflict):
			s.writeJSON(w, http.StatusConflict, ajaxResponse{Error: "item changed concurrently, reload and retry"})
		case errors.Is(err, store.ErrNotFound):
			s.writeJSON(w, http.StatusNotFound, ajaxResponse{Error: "not found"})
		default:
			s.logger.Error("gallery replace failed", "error", err)
			s.writeJSON(w, http.StatusInternalServerError, ajaxResponse{Error: "internal error"})
		}
		return
	}

	resp := ajaxResponse{Success: true, ID: id, Filename: receipt.Filename}
	if receipt.Warning != nil {
		resp.Warning = receipt.Warning.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGalleryDeleteAjax(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.writeJSON(w, http.StatusBadRequest, ajaxResponse{Error: "invalid request"})
		return
	}

	id := r.FormValue("id")
	receipt, err := s.gallery.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, ajaxResponse{Error: "not found"})
			return
		}
		s.logger.Error("gallery delete failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ajaxResponse{Error: "internal error"})
		return
	}

	resp := ajaxResponse{Success: true, ID: id}
	if receipt.Warning != nil {
		resp.Warning = receipt.Warning.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
