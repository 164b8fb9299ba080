// Package media serves the public file root: audio files, cover images and
// any static client bundle.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
)

var ErrNotExist = errors.New("media: object does not exist")

// Object is an open public file
type Object struct {
	Body io.ReadCloser
	Size int64 // -1 when unknown
}

// Source opens public files by slash-separated name
type Source interface {
	Open(ctx context.Context, name string) (*Object, error)
}

// DirSource reads files below a local directory
type DirSource struct {
	fsys fs.FS
}

func NewDirSource(root string) *DirSource {
	return &DirSource{fsys: os.DirFS(root)}
}

func (d *DirSource) Open(_ context.Context, name string) (*Object, error) {
	if !fs.ValidPath(name) {
		return nil, ErrNotExist
	}

	f, err := d.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotExist
	}

	return &Object{Body: f, Size: info.Size()}, nil
}

// Handler serves whole files from src for GET and HEAD. "/" maps to
// index.html.
func Handler(src Source, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		obj, err := src.Open(r.Context(), name)
		if errors.Is(err, ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logger.Printf("Error opening %s: %v", name, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer obj.Body.Close()

		w.Header().Set("Content-Type", contentType(name))
		if obj.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, obj.Body); err != nil {
			logger.Printf("Error streaming %s: %v", name, err)
		}
	}
}

// not every system mime table knows audio types
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

func contentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Publisher stores public files under slash-separated names
type Publisher interface {
	Put(ctx context.Context, name string, obj *Object, contentType string) error
}

// Publish copies every regular file below root into dst and returns how many
// were written.
func Publish(ctx context.Context, root string, dst Publisher) (int, error) {
	src := NewDirSource(root)

	n := 0
	err := fs.WalkDir(src.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		obj, err := src.Open(ctx, name)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer obj.Body.Close()

		if err := dst.Put(ctx, name, obj, contentType(name)); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
