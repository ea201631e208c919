package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/scriptd/pkg/response"
)

// ErrWorker wraps failures returned by workers.
var ErrWorker = errors.New("worker failed")

// internalDispatcher lets workers and scripts forward to another path of
// the same server. Internal requests may reach private paths.
type internalDispatcher struct {
	s *Server
}

func (d internalDispatcher) Dispatch(p string, ctx *response.Context) error {
	_, err := d.s.dispatch(ctx, p, false)
	return err
}

// OtherRoute labels requests that matched no worker or file.
const OtherRoute = "other"

// dispatch applies the routing policy to urlPath. Routing outcomes (403,
// 404) are written to ctx; the returned error reports script, worker and
// I/O failures. route names what the request matched: the worker route,
// the served file's path under the root, or OtherRoute.
func (s *Server) dispatch(ctx *response.Context, urlPath string, direct bool) (route string, err error) {
	if direct && s.isPrivate(urlPath) {
		return OtherRoute, s.sendStatus(ctx, 403)
	}

	if prefix := s.opts.ExtensionPrefix; prefix != "" && strings.HasPrefix(urlPath, prefix) {
		name := strings.TrimPrefix(urlPath, prefix)
		return s.runWorker(ctx, prefix+name, name)
	}

	if name, ok := s.opts.Routes[urlPath]; ok {
		return s.runWorker(ctx, urlPath, name)
	}

	full, ok := s.resolve(urlPath)
	if !ok {
		return OtherRoute, s.sendStatus(ctx, 403)
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return OtherRoute, s.sendStatus(ctx, 404)
	}

	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return OtherRoute, fmt.Errorf("resolve %s: %w", urlPath, err)
	}
	route = "/" + filepath.ToSlash(rel)
	ext := strings.TrimPrefix(filepath.Ext(full), ".")
	if strings.EqualFold(ext, s.opts.ScriptExtension) {
		return route, s.runScript(ctx, full, info)
	}
	return route, s.sendFile(ctx, full, info)
}

func (s *Server) isPrivate(urlPath string) bool {
	clean := path.Clean("/" + urlPath)
	for _, pattern := range s.opts.PrivatePatterns {
		if ok, _ := doublestar.Match(pattern, clean); ok {
			return true
		}
	}
	return false
}

// resolve maps urlPath into the document root. It reports false when the
// result would lie outside the root.
func (s *Server) resolve(urlPath string) (string, bool) {
	full := filepath.Join(s.root, filepath.FromSlash(urlPath))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (s *Server) runWorker(ctx *response.Context, route, name string) (string, error) {
	w, ok := s.registry.New(name)
	if !ok {
		return OtherRoute, s.sendStatus(ctx, 404)
	}
	if err := w.ProcessRequest(ctx); err != nil {
		return route, fmt.Errorf("%w: %s: %w", ErrWorker, name, err)
	}
	return route, nil
}

func (s *Server) runScript(ctx *response.Context, full string, info os.FileInfo) error {
	doc, err := s.cache.load(full, info)
	if err != nil {
		return fmt.Errorf("load script %s: %w", full, err)
	}
	if err := s.interp.Run(doc, ctx); err != nil {
		return fmt.Errorf("run script %s: %w", full, err)
	}
	return nil
}

func (s *Server) sendFile(ctx *response.Context, full string, info os.FileInfo) error {
	f, err := os.Open(full)
	if err != nil {
		return s.sendStatus(ctx, 404)
	}
	defer f.Close()

	if !ctx.HeaderSent() {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(full), "."))
		mime, ok := s.opts.MimeTypes[ext]
		if !ok {
			mime = DefaultMimeType
		}
		if err := ctx.SetMimeType(mime); err != nil {
			return err
		}
		if err := ctx.SetContentLength(info.Size()); err != nil {
			return err
		}
	}
	if _, err := io.Copy(ctx, f); err != nil {
		return fmt.Errorf("send %s: %w", full, err)
	}
	return nil
}

// sendStatus answers with a short HTML error page. Once the header is out
// the status can no longer change and nothing is written.
func (s *Server) sendStatus(ctx *response.Context, code int) error {
	if ctx.HeaderSent() {
		return nil
	}
	if err := ctx.SetStatus(code); err != nil {
		return err
	}
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(ctx, "<html><body><h1>%d %s</h1></body></html>\n", code, ctx.StatusText())
	return err
}
