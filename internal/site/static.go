package site

import (
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

const directoryIndex = "index.html"

// StaticMount exposes a directory tree under URL paths mirroring it.
// Dotfiles are hidden and directories are never listed.
type StaticMount struct {
	fsys   fs.FS
	logger *slog.Logger
}

func NewStaticMount(fsys fs.FS, logger *slog.Logger) *StaticMount {
	return &StaticMount{fsys: fsys, logger: logger}
}

func (m *StaticMount) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !readOnlyMethod(r.Method) {
		http.NotFound(w, r)
		return
	}

	name := fsName(r.URL.Path)
	if hasDotSegment(name) {
		http.NotFound(w, r)
		return
	}

	f, info, err := openFile(m.fsys, name)
	if err != nil {
		writeFileError(w, r, m.logger, name, err)
		return
	}

	if info.IsDir() {
		f.Close()
		if !strings.HasSuffix(r.URL.Path, "/") {
			redirectToDir(w, r)
			return
		}

		name = path.Join(name, directoryIndex)
		f, info, err = openFile(m.fsys, name)
		if err != nil {
			writeFileError(w, r, m.logger, name, err)
			return
		}
		if info.IsDir() {
			f.Close()
			http.NotFound(w, r)
			return
		}
	} else if strings.HasSuffix(r.URL.Path, "/") {
		f.Close()
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	if err := serveContent(w, r, f, info); err != nil {
		writeFileError(w, r, m.logger, name, err)
	}
}

// fsName converts a URL path to an fs.FS name ("." for the mount root).
func fsName(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return "."
	}
	return name
}

func hasDotSegment(name string) bool {
	if name == "." {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

func redirectToDir(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Path + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}
