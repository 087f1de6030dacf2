// Package site serves the two fixed pages and the static asset mount.
package site

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/Gakyra/w-chat/internal/routing"
)

// Page files looked up at the site root.
const (
	IndexPage     = "index.html"
	EditVideoPage = "editVideo.html"
)

// Site dispatches requests to the page files or the static mount.
type Site struct {
	root   fs.FS
	static *StaticMount
	logger *slog.Logger
}

// New builds a Site over root. staticDir is the static asset root relative to root.
func New(root fs.FS, staticDir string, logger *slog.Logger) (*Site, error) {
	staticFS, err := fs.Sub(root, staticDir)
	if err != nil {
		return nil, fmt.Errorf("mount static dir %q: %w", staticDir, err)
	}

	return &Site{
		root:   root,
		static: NewStaticMount(staticFS, logger),
		logger: logger,
	}, nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch routing.Match(r.URL.Path) {
	case routing.TargetIndexPage:
		s.servePage(w, r, IndexPage)
	case routing.TargetEditVideoPage:
		s.servePage(w, r, EditVideoPage)
	default:
		s.static.ServeHTTP(w, r)
	}
}

func (s *Site) servePage(w http.ResponseWriter, r *http.Request, name string) {
	if !readOnlyMethod(r.Method) {
		http.NotFound(w, r)
		return
	}

	f, info, err := openFile(s.root, name)
	if err != nil {
		writeFileError(w, r, s.logger, name, err)
		return
	}
	defer f.Close()

	if info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if err := serveContent(w, r, f, info); err != nil {
		writeFileError(w, r, s.logger, name, err)
	}
}

func readOnlyMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
