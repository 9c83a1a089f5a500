// Package web holds the server-rendered pages and the browser assets of the
// caffeine tracker.
package web

import "embed"

// TemplatePattern matches every page and partial in TemplatesFS. All files
// are parsed into one set so pages can share the header and footer.
const TemplatePattern = "templates/*.html"

// TemplatesFS embeds the html/template sources.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds app.css and app.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
