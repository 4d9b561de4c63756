package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/views"
)

const multipartMemory = 32 << 20

func pageFromQuery(r *http.Request) (views.PageRequest, error) {
	q := r.URL.Query()
	return views.ParsePage(q.Get("page"), q.Get("limit"))
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// uploads spools multipart files into temporary files so the services can
// hand local paths to the object store. cleanup removes them.
type uploads struct {
	r     *http.Request
	paths []string
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (*uploads, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.Validation(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return nil, apperror.Validation("invalid multipart form", err.Error())
	}
	return &uploads{r: r}, nil
}

func (u *uploads) value(name string) string {
	return strings.TrimSpace(u.r.FormValue(name))
}

// file saves the named part and returns its path, or "" when the part is absent.
func (u *uploads) file(name string) (string, error) {
	src, header, err := u.r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperror.Validation("invalid " + name + " upload")
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "vidtube-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return "", apperror.Internal("spool upload", err)
	}
	u.paths = append(u.paths, dst.Name())

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", apperror.Internal("spool upload", err)
	}
	if err := dst.Close(); err != nil {
		return "", apperror.Internal("spool upload", err)
	}
	return dst.Name(), nil
}

func (u *uploads) cleanup() {
	for _, path := range u.paths {
		_ = os.Remove(path)
	}
	if u.r.MultipartForm != nil {
		_ = u.r.MultipartForm.RemoveAll()
	}
}
