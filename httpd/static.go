package httpd

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/runocan/basic-server/config"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// StaticFile is a file loaded in full from the document root.
type StaticFile struct {
	Name        string // decoded name relative to the root
	Path        string // path on disk
	ContentType string
	Data        []byte
}

// StaticFiles serves allow-listed files from below the configured root.
type StaticFiles struct {
	cfg *config.Config
}

// NewStaticFiles returns a resolver for cfg.Root().
func NewStaticFiles(cfg *config.Config) *StaticFiles {
	return &StaticFiles{cfg: cfg}
}

// Open resolves a request target and loads the file.
//
// Checks run in a fixed order and the first failing one decides:
// containment (ErrForbidden), allow-list (ErrForbidden), existence
// (ErrNotFound). Undecodable targets give ErrBadURI.
func (s *StaticFiles) Open(uri string) (*StaticFile, error) {
	name, err := s.name(uri)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.cfg.Root(), filepath.FromSlash(name))

	if filepath.IsAbs(name) {
		return nil, fmt.Errorf("%w: absolute name %q", ErrForbidden, name)
	}
	if err := s.contain(path); err != nil {
		return nil, err
	}

	if !s.cfg.IsAllowed(name) {
		return nil, fmt.Errorf("%w: %q is not allowed", ErrForbidden, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, statusErr(name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", ErrNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, statusErr(name, err)
	}

	return &StaticFile{
		Name:        name,
		Path:        path,
		ContentType: s.contentType(name),
		Data:        data,
	}, nil
}

// name decodes uri into a root-relative file name.
func (s *StaticFiles) name(uri string) (string, error) {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}

	name, err := url.PathUnescape(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURI, err)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return "", fmt.Errorf("%w: NUL in %q", ErrBadURI, uri)
	}

	name = strings.TrimPrefix(name, "/")
	if name == "" {
		name = s.cfg.DefaultDocument()
	}

	return name, nil
}

// contain fails unless path stays below the root, both as written and
// after following symlinks.
func (s *StaticFiles) contain(path string) error {
	root, err := filepath.Abs(s.cfg.Root())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if !within(root, abs) {
		return fmt.Errorf("%w: %q escapes the root", ErrForbidden, path)
	}

	realRoot, err := resolve(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	resolved, err := resolve(abs)
	if err != nil || !within(realRoot, resolved) {
		return fmt.Errorf("%w: %q links outside the root", ErrForbidden, path)
	}

	return nil
}

// resolve follows symlinks in path. When the leaf is missing, the deepest
// existing ancestor is resolved and the missing rest joined back on. A
// dangling link cannot be checked and is an error.
func resolve(path string) (string, error) {
	cur, rest := path, ""
	for {
		r, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(r, rest), nil
		}
		if fi, lerr := os.Lstat(cur); lerr == nil && fi.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("dangling link %q", cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (s *StaticFiles) contentType(name string) string {
	ext := filepath.Ext(name)
	if t, ok := s.cfg.ContentType(ext); ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return config.DefaultContentType
}

func statusErr(name string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %q: %v", ErrForbidden, name, err)
	}
	return fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
}
