// Package uploads stores announcement images on disk and serves them back.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
)

const (
	// PublicPrefix is the URL path images are served under.
	PublicPrefix = "/uploads/"

	DefaultMaxBytes = 10 << 20
)

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
	"image/svg+xml",
}

// Store keeps uploaded images in a single directory.
type Store struct {
	dir      string
	maxBytes int64
}

func New(dir string, maxBytes int64) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save validates r as an accepted image and writes it under a fresh name.
// It returns the public reference, e.g. /uploads/0190....png.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", domain.InvalidInput("could not read image: " + err.Error())
	}
	if int64(len(data)) > s.maxBytes {
		return "", domain.InvalidInput(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}
	if len(data) == 0 {
		return "", domain.InvalidInput("image is empty")
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", domain.InvalidInput("only image files are allowed, got " + mtype.String())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", domain.StorageFailure("name image", err)
	}
	name := id.String() + mtype.Extension()

	if err := s.write(name, data); err != nil {
		return "", domain.StorageFailure("save image", err)
	}
	return PublicPrefix + name, nil
}

func (s *Store) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

// Remove deletes the image behind ref. A missing file is not an error.
func (s *Store) Remove(ref string) error {
	name, err := nameOf(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// nameOf extracts the file name from a public reference, rejecting anything
// that would leave the upload directory.
func nameOf(ref string) (string, error) {
	if !strings.HasPrefix(ref, PublicPrefix) {
		return "", fmt.Errorf("not an upload reference: %q", ref)
	}
	name := strings.TrimPrefix(ref, PublicPrefix)
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid upload reference: %q", ref)
	}
	return name, nil
}

// uploadCSP stops scripts embedded in uploaded files (SVG in particular)
// from running in the API origin when opened directly.
const uploadCSP = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// Handler serves stored images. Directory listings are not exposed.
func (s *Store) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix(PublicPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") || strings.HasPrefix(path.Base(r.URL.Path), ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", uploadCSP)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	}))
}
