// Package config holds the process-wide settings of the server.
//
// A Config is built once at startup and never changes afterwards; every
// connection reads it concurrently without locking.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 10000
	DefaultRoot            = "Public"
	DefaultDocument        = "home.html"
	DefaultReadBuffer      = 1024
	DefaultHTTPVersion     = "1.1"
	DefaultContentType     = "text/html"
	DefaultServerSignature = "Crude Server"
)

// Header is a single name/value pair. Order matters, so headers are kept in
// a list rather than a map.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// File is the on-disk shape of the configuration.
// Zero fields fall back to the defaults.
type File struct {
	Host              string            `yaml:"host"`
	Port              int               `yaml:"port"`
	Root              string            `yaml:"root"`
	DefaultDocument   string            `yaml:"default_document"`
	ReadBuffer        int               `yaml:"read_buffer"`
	Headers           []Header          `yaml:"headers"`
	AllowedFiles      []string          `yaml:"allowed_files"`
	AllowedExtensions []string          `yaml:"allowed_extensions"`
	ContentTypes      map[string]string `yaml:"content_types"`
}

// Config is the immutable configuration value.
type Config struct {
	host         string
	port         int
	root         string
	document     string
	readBuffer   int
	headers      []Header
	allowedFiles map[string]struct{}
	allowedExts  map[string]struct{}
	contentTypes map[string]string
}

func defaultFile() File {
	return File{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Root:            DefaultRoot,
		DefaultDocument: DefaultDocument,
		ReadBuffer:      DefaultReadBuffer,
		Headers: []Header{
			{"Server", DefaultServerSignature},
			{"Content-Type", DefaultContentType},
		},
		AllowedFiles:      []string{"index.html", "hello.html", "home.html"},
		AllowedExtensions: []string{".html", ".css", ".js", ".jpg", ".jpeg", ".png", ".gif"},
		ContentTypes: map[string]string{
			".html": "text/html",
			".htm":  "text/html",
			".css":  "text/css",
			".js":   "text/javascript",
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
			".gif":  "image/gif",
			".txt":  "text/plain",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	c, err := New(File{})
	if err != nil {
		panic(err)
	}
	return c
}

// New validates f, fills in defaults and freezes the result.
func New(f File) (*Config, error) {
	d := defaultFile()

	if f.Host == "" {
		f.Host = d.Host
	}
	if f.Port == 0 {
		f.Port = d.Port
	}
	if f.Root == "" {
		f.Root = d.Root
	}
	if f.DefaultDocument == "" {
		f.DefaultDocument = d.DefaultDocument
	}
	if f.ReadBuffer == 0 {
		f.ReadBuffer = d.ReadBuffer
	}
	if f.Headers == nil {
		f.Headers = d.Headers
	}
	if f.AllowedFiles == nil {
		f.AllowedFiles = d.AllowedFiles
	}
	if f.AllowedExtensions == nil {
		f.AllowedExtensions = d.AllowedExtensions
	}
	if f.ContentTypes == nil {
		f.ContentTypes = d.ContentTypes
	}

	if f.Port < 0 || f.Port > 65535 {
		return nil, fmt.Errorf("config: bad port: %d", f.Port)
	}
	if f.ReadBuffer < 0 {
		return nil, fmt.Errorf("config: bad read_buffer: %d", f.ReadBuffer)
	}
	if strings.ContainsAny(f.DefaultDocument, "/\\") || f.DefaultDocument == ".." {
		return nil, fmt.Errorf("config: default_document must be a plain file name: %q", f.DefaultDocument)
	}

	c := &Config{
		host:         f.Host,
		port:         f.Port,
		root:         filepath.Clean(f.Root),
		document:     f.DefaultDocument,
		readBuffer:   f.ReadBuffer,
		allowedFiles: make(map[string]struct{}, len(f.AllowedFiles)),
		allowedExts:  make(map[string]struct{}, len(f.AllowedExtensions)),
		contentTypes: make(map[string]string, len(f.ContentTypes)),
	}

	seen := make(map[string]int)
	for _, h := range f.Headers {
		if h.Name == "" || strings.ContainsAny(h.Name, ":\r\n") || strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("config: bad header: %q", h.Name)
		}
		if i, ok := seen[h.Name]; ok {
			c.headers[i].Value = h.Value
			continue
		}
		seen[h.Name] = len(c.headers)
		c.headers = append(c.headers, h)
	}

	for _, name := range f.AllowedFiles {
		c.allowedFiles[name] = struct{}{}
	}
	for _, ext := range f.AllowedExtensions {
		c.allowedExts[normalizeExt(ext)] = struct{}{}
	}
	for ext, typ := range f.ContentTypes {
		c.contentTypes[normalizeExt(ext)] = typ
	}

	return c, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Parse decodes YAML configuration. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}

	return New(f)
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// With returns a copy of c with the listen address and root replaced.
// Empty arguments keep the current value.
func (c *Config) With(addr string, root string) (*Config, error) {
	n := *c

	if addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("config: bad listen address: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p < 0 || p > 65535 {
			return nil, fmt.Errorf("config: bad listen port: %s", port)
		}
		n.host = host
		n.port = p
	}
	if root != "" {
		n.root = filepath.Clean(root)
	}

	return &n, nil
}

// Port is the bind port.
func (c *Config) Port() int { return c.port }

// Addr is host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Root is the directory files are served from.
func (c *Config) Root() string { return c.root }

// DefaultDocument is served for an empty request target.
func (c *Config) DefaultDocument() string { return c.document }

// ReadBuffer is the size of the single read done per connection.
func (c *Config) ReadBuffer() int { return c.readBuffer }

// HTTPVersion is the version written in every status line.
func (c *Config) HTTPVersion() string { return DefaultHTTPVersion }

// Headers returns a copy of the base headers, in order.
func (c *Config) Headers() []Header {
	hs := make([]Header, len(c.headers))
	copy(hs, c.headers)
	return hs
}

// IsAllowed reports whether name matches an allowed file name exactly or
// carries an allowed extension.
func (c *Config) IsAllowed(name string) bool {
	if _, ok := c.allowedFiles[name]; ok {
		return true
	}
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	_, ok := c.allowedExts[strings.ToLower(ext)]
	return ok
}

// ContentType looks up the configured type for ext.
func (c *Config) ContentType(ext string) (string, bool) {
	t, ok := c.contentTypes[strings.ToLower(ext)]
	return t, ok
}
