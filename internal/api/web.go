package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// WebHandler serves the embedded browser UI. Unknown paths without a file
// extension fall back to index.html.
func WebHandler(webFS fs.FS) http.HandlerFunc {
	files := http.FileServer(http.FS(webFS))
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(webFS, name); err != nil && path.Ext(name) == "" {
			r = r.Clone(r.Context())
			r.URL.Path = "/"
			name = "index.html"
		}
		if strings.HasSuffix(name, ".html") {
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	}
}

// OpenAPIHandler serves the embedded API description.
func OpenAPIHandler(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(spec)
	}
}
