// ABOUTME: Embedded site content: TOML page metadata and markdown page copy
// ABOUTME: Parsed once at startup and shared read-only across handlers

package web

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/BurntSushi/toml"
	"github.com/yuin/goldmark"
)

// SiteInfo is the site-wide identity block from site.toml.
type SiteInfo struct {
	Name    string `toml:"name"`
	Tagline string `toml:"tagline"`
	Email   string `toml:"email"`
	Phone   string `toml:"phone"`
}

// PageMeta is the per-page metadata block from site.toml.
type PageMeta struct {
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Keywords    []string `toml:"keywords"`
}

// Content holds the parsed embedded site content.
type Content struct {
	Site  SiteInfo            `toml:"site"`
	Pages map[string]PageMeta `toml:"pages"`

	programsHTML template.HTML
}

// LoadContent parses the embedded TOML metadata and renders the embedded
// markdown pages. Called once at startup; the result is immutable.
func LoadContent() (*Content, error) {
	raw, err := contentFS.ReadFile("content/site.toml")
	if err != nil {
		return nil, fmt.Errorf("reading site metadata: %w", err)
	}

	var c Content
	if err := toml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing site metadata: %w", err)
	}

	md, err := contentFS.ReadFile("content/programs.md")
	if err != nil {
		return nil, fmt.Errorf("reading programs page: %w", err)
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("rendering programs page: %w", err)
	}
	c.programsHTML = template.HTML(buf.String())

	return &c, nil
}

// Page returns the metadata for a page key, falling back to the site name
// when the key is unknown.
func (c *Content) Page(key string) PageMeta {
	if meta, ok := c.Pages[key]; ok {
		return meta
	}
	return PageMeta{Title: c.Site.Name}
}

// ProgramsHTML returns the rendered programs page body.
func (c *Content) ProgramsHTML() template.HTML {
	return c.programsHTML
}
