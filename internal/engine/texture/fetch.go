package texture

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Source identifies texture content: a URL or an already decoded image.
type Source struct {
	URL   string
	Image image.Image
}

// FromURL returns a source for an http(s) URL, a data: URL or a file path.
func FromURL(u string) *Source {
	return &Source{URL: u}
}

// FromImage returns a source for an in-memory bitmap. name labels it in logs.
func FromImage(img image.Image, name string) *Source {
	return &Source{URL: name, Image: img}
}

func (s *Source) String() string {
	if s == nil {
		return "<none>"
	}
	if strings.HasPrefix(s.URL, "data:") {
		// Data URLs carry the whole upload; keep logs short
		if i := strings.IndexByte(s.URL, ','); i > 0 {
			return s.URL[:i] + ",..."
		}
	}
	return s.URL
}

// Fetcher retrieves the encoded bytes behind a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, u string) ([]byte, error)
}

// DefaultFetcher reads data: URLs inline, http(s) URLs over the network and
// anything else from disk, relative to BaseDir.
type DefaultFetcher struct {
	BaseDir string
	Client  *http.Client
}

// Fetch implements Fetcher.
func (f *DefaultFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	switch {
	case strings.HasPrefix(u, "data:"):
		return decodeDataURL(u)
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return f.fetchHTTP(ctx, u)
	default:
		return f.readFile(u)
	}
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *DefaultFetcher) readFile(p string) ([]byte, error) {
	// Web-style absolute paths ("/texture/a.jpg") are served from BaseDir
	if f.BaseDir != "" {
		p = filepath.Join(f.BaseDir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
	}
	return os.ReadFile(p)
}

// decodeDataURL parses data:[<mediatype>][;base64],<data>.
func decodeDataURL(u string) ([]byte, error) {
	comma := strings.IndexByte(u, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := u[len("data:"):comma], u[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL: %w", err)
	}
	return []byte(s), nil
}
