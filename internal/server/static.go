package server

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

const assetPrefix = "/assets/"

// assetRelPath returns a sanitized path below the assets root for a request
// path. Traversal and absolute-path tricks are rejected so asset serving
// cannot escape the assets filesystem.
func assetRelPath(urlPath string) (string, bool) {
	rel, ok := strings.CutPrefix(urlPath, assetPrefix)
	if !ok || rel == "" {
		return "", false
	}

	// %00 decodes to NUL.
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}
	// "/assets//etc/passwd" leaves "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	// Dot segments are rejected before cleaning so cleaning cannot change
	// what was asked for.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	rel, ok := assetRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.config.Assets.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		content = bytes.NewReader(b)
	}

	s.applyAssetCache(w, rel)
	http.ServeContent(w, r, rel, info.ModTime(), content)
}

// applyAssetCache disables caching in dev. Otherwise fingerprinted files
// are immutable and the rest revalidate hourly.
func (s *Server) applyAssetCache(w http.ResponseWriter, rel string) {
	switch {
	case s.config.Dev:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case isFingerprinted(rel):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
}

// isFingerprinted reports whether a file name carries a content hash, as in
// "site.a1b2c3d4.css".
func isFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
