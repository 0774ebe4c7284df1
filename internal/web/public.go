// ABOUTME: Public page handlers: home, gallery, programs, contact and uploads
// ABOUTME: Records visit events and accepts contact messages

package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jevicarn/site/internal/gallery"
	"github.com/jevicarn/site/internal/store"
)

// homeGalleryStrip is how many recent photos the landing page shows.
const homeGalleryStrip = 6

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.recordVisit(r, "home")

	data := s.basePage(r, "home")

	items, err := s.store.ListGalleryItems(r.Context())
	if err != nil {
		s.logger.Error("failed to list gallery items", "error", err)
	} else if len(items) > homeGalleryStrip {
		data.Items = items[len(items)-homeGalleryStrip:]
	} else {
		data.Items = items
	}

	s.render(w, "home.html", data)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	s.recordVisit(r, "gallery")

	data := s.basePage(r, "gallery")

	items, err := s.store.ListGalleryItems(r.Context())
	if err != nil {
		s.logger.Error("failed to list gallery items", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data.Items = items

	s.render(w, "gallery.html", data)
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	s.recordVisit(r, "programs")

	data := s.basePage(r, "programs")
	data.Body = s.content.ProgramsHTML()

	s.render(w, "programs.html", data)
}

func (s *Server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	s.recordVisit(r, "contact")
	s.render(w, "contact.html", s.basePage(r, "contact"))
}

func (s *Server) handleContactPost(w http.ResponseWriter, r *http.Request) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		http.Redirect(w, r, "/contact?flash=Invalid+form+data&error=1", http.StatusSeeOther)
		return
	}

	sender := r.FormValue("sender")
	text := r.FormValue("text")
	if sender == "" {
		http.Redirect(w, r, "/contact?flash=Please+tell+us+who+you+are&error=1", http.StatusSeeOther)
		return
	}

	// Optional image attachment. Stored like a gallery artifact but with no
	// gallery row; the message references it by filename.
	var attachment string
	if file, header, ferr := r.FormFile("attachment"); ferr == nil {
		attachment, err = s.gallery.SaveAttachment(file, header.Filename)
		file.Close()
		if err != nil {
			if errors.Is(err, gallery.ErrUnsupportedType) {
				http.Redirect(w, r, "/contact?flash=Only+image+attachments+are+accepted&error=1", http.StatusSeeOther)
				return
			}
			s.logger.Error("failed to save attachment", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	msg := &store.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Filename:  attachment,
		Location:  r.FormValue("location"),
		Platform:  r.UserAgent(),
		Timestamp: time.Now(),
	}

	if err := s.store.CreateMessage(r.Context(), msg); err != nil {
		if errors.Is(err, store.ErrEmptyMessage) {
			http.Redirect(w, r, "/contact?flash=Please+write+a+message&error=1", http.StatusSeeOther)
			return
		}
		s.logger.Error("failed to save contact message", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("contact message received", "sender", sender)
	http.Redirect(w, r, "/contact?flash=Thank+you%2C+we+will+get+back+to+you", http.StatusSeeOther)
}

// handleUpload serves gallery artifacts. The filename is containment-checked
// against the upload directory before anything touches the filesystem.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	path, err := s.gallery.ArtifactPath(name)
	if err != nil {
		if errors.Is(err, gallery.ErrPathEscape) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.ServeFile(w, r, path)
}

// handleKeepAlivePing answers the self-ping loop with a fixed body.
func (s *Server) handleKeepAlivePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

// recordVisit appends a page-view event. Failures are logged, never
// surfaced; analytics must not break the public site.
func (s *Server) recordVisit(r *http.Request, page string) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = r.Referer()
	}
	if source == "" {
		source = "direct"
	}

	event := &store.VisitEvent{
		ID:        uuid.NewString(),
		IP:        clientIP(r),
		Source:    source,
		Page:      page,
		Timestamp: time.Now(),
	}
	if err := s.store.RecordVisit(r.Context(), event); err != nil {
		s.logger.Error("failed to record visit", "page", page, "error", err)
	}
}
