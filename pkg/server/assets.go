package server

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	clientdist "github.com/hashpad-dev/hashpad/client/dist"
)

// asset is an embedded file served with a content hash ETag.
type asset struct {
	body        []byte
	contentType string
	etag        string
}

func newAsset(body []byte, contentType string) *asset {
	sum := sha256.Sum256(body)
	return &asset{
		body:        body,
		contentType: contentType,
		etag:        fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:16])),
	}
}

var (
	pageAsset   = newAsset(clientdist.IndexHTML, "text/html; charset=utf-8")
	clientAsset = newAsset(clientdist.HashpadJS, "application/javascript; charset=utf-8")
)

// ServeHTTP serves the asset. Clients revalidate on every load, so a new
// build is picked up without a versioned URL.
func (a *asset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(a.body) == 0 {
		http.Error(w, "asset not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", a.etag)
	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")

	if etagMatches(r.Header.Get("If-None-Match"), a.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(a.body)
}

func etagMatches(ifNoneMatchHeader, etag string) bool {
	if ifNoneMatchHeader == "" || etag == "" {
		return false
	}
	// Handle lists: If-None-Match: "abc", W/"def"
	for _, part := range strings.Split(ifNoneMatchHeader, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == etag || candidate == "*" {
			return true
		}
		if strings.HasPrefix(candidate, "W/") && strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
