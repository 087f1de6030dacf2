package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"syscall"
)

const cacheControl = "public, max-age=0"

func openFile(fsys fs.FS, name string) (fs.File, fs.FileInfo, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}

	return f, info, nil
}

// serveContent writes f with the default caching headers. Conditional and
// range requests are handled by http.ServeContent.
func serveContent(w http.ResponseWriter, r *http.Request, f fs.File, info fs.FileInfo) error {
	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", info.Name(), err)
		}
		content = bytes.NewReader(data)
	}

	header := w.Header()
	header.Set("Cache-Control", cacheControl)
	header.Set("ETag", weakETag(info))

	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return nil
}

// weakETag mirrors the size/mtime tag most static servers emit.
func weakETag(info fs.FileInfo) string {
	return fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().UnixMilli())
}

// isNotFound reports errors that mean no file exists at the requested path:
// a missing entry, an invalid name, a path through a regular file or an
// over-long name segment.
func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

func writeFileError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, err error) {
	if isNotFound(err) {
		http.NotFound(w, r)
		return
	}

	logger.Error("serve file failed",
		"file", name,
		"path", r.URL.Path,
		"error", err,
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
