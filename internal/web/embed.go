// ABOUTME: Embeds HTML templates and site content into the binary using go:embed
// ABOUTME: Provides templateFS and contentFS for loading at runtime

package web

import "embed"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/site.toml content/programs.md
var contentFS embed.FS
