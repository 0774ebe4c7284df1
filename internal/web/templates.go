// ABOUTME: Template rendering for public pages and the admin dashboard
// ABOUTME: Loads templates from the embedded filesystem and renders them

package web

import (
	"html/template"
	"net/http"

	"github.com/jevicarn/site/internal/store"
)

// pageData is the payload common to every public page.
type pageData struct {
	Site       SiteInfo
	Meta       PageMeta
	Flash      string
	FlashError bool
	Items      []*store.GalleryItem
	Body       template.HTML
}

// dashboardStats feeds the stat cards on the admin dashboard.
type dashboardStats struct {
	Messages     int
	Senders      int
	Visits       int
	GalleryItems int
}

type loginData struct {
	Site             SiteInfo
	Meta             PageMeta
	Flash            string
	FlashError       bool
	CSRFToken        string
	RegistrationOpen bool
}

type dashboardData struct {
	Site       SiteInfo
	Meta       PageMeta
	Flash      string
	FlashError bool
	CSRFToken  string
	Username   string
	Stats      dashboardStats
	TopSenders []store.SenderCount
	Locations  map[string]int
	Platforms  map[string]int
	Recent     []*store.Message
	Items      []*store.GalleryItem
}

type threadData struct {
	Site       SiteInfo
	Meta       PageMeta
	Flash      string
	FlashError bool
	CSRFToken  string
	Username   string
	Sender     string
	Messages   []*store.Message
}

// render parses base.html together with one view and executes it.
func (s *Server) render(w http.ResponseWriter, view string, data any) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+view))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "view", view, "error", err)
	}
}

// basePage builds the common payload for a public page, reading the one-shot
// flash from the query string.
func (s *Server) basePage(r *http.Request, key string) pageData {
	return pageData{
		Site:       s.content.Site,
		Meta:       s.content.Page(key),
		Flash:      r.URL.Query().Get("flash"),
		FlashError: r.URL.Query().Get("error") == "1",
	}
}
