// Package web embeds the developer console page. The page talks to
// /ws/console and exists so every bot flow can be exercised from a
// browser without a Telegram token.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:console
var consoleFS embed.FS

// ConsoleHandler returns an http.Handler serving the embedded console
// page.
func ConsoleHandler() http.Handler {
	subFS, err := fs.Sub(consoleFS, "console")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(subFS))
}
