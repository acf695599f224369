// Package web embeds the Spanish user interface: the upload form
// (index.html), the extracted-text page with its contact form
// (results.html) and the one-line status page used for every outcome
// message (message.html). All three share the header and footer defined in
// layout.html. The stylesheet is served from StaticFS under /static/.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed static/style.css
var staticFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

var (
	// StaticFS holds the stylesheet, rooted so that /static/style.css maps
	// to style.css.
	StaticFS fs.FS = mustSub(staticFiles, "static")

	// Templates holds every page, looked up by file name.
	Templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))
)

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("web: " + err.Error())
	}
	return sub
}
