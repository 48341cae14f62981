// Package web serves the console's embedded single-page shell.
package web

import (
	"embed"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed dist/*
var content embed.FS

// Handler serves the embedded shell. Paths that name an embedded asset are
// served as files; every other path gets index.html so the shell's client-side
// router can handle deep links such as /keys or /logs.
//
// apiBase is advertised to the shell through a
// <meta name="switchboard-api" content="..."> tag.
func Handler(apiBase string) (http.Handler, error) {
	fsys, err := fs.Sub(content, "dist")
	if err != nil {
		return nil, fmt.Errorf("loading embedded web assets: %w", err)
	}
	indexBytes, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return nil, fmt.Errorf("reading embedded index.html: %w", err)
	}
	meta := `<meta name="switchboard-api" content="` + html.EscapeString(apiBase) + `">`
	index := []byte(strings.Replace(string(indexBytes), "</head>", "  "+meta+"\n</head>", 1))

	static := http.FileServer(http.FS(fsys))
	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(index)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if clean == "" || clean == "." || clean == "index.html" {
			serveIndex(w, r)
			return
		}
		if _, err := fs.Stat(fsys, clean); err == nil {
			static.ServeHTTP(w, r)
			return
		}
		serveIndex(w, r)
	}), nil
}
