package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/getmockd/scriptd/pkg/response"
)

// ErrBadRequest marks requests answered with 400.
var ErrBadRequest = errors.New("bad request")

// Request is a parsed GET request.
type Request struct {
	Method  string
	Path    string
	Version string
	Params  map[string]string
	Header  textproto.MIMEHeader
	Cookies map[string]string
}

// Host returns the Host header without its port. It returns "" when the
// header is missing or is not a plain host name or IP literal, since the
// value ends up in the session cookie's Domain attribute.
func (r *Request) Host() string {
	host := strings.TrimSpace(r.Header.Get("Host"))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.Trim(host, "[]")
	}
	if !validHost(host) {
		return ""
	}
	return host
}

// validHost accepts letters, digits, '-', '.' and, for IPv6 literals, ':'.
func validHost(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for i := 0; i < len(host); i++ {
		switch c := host[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// readRequest parses the request line and headers. Only GET over HTTP/1.0
// or HTTP/1.1 is accepted; bodies are never read.
func readRequest(br *bufio.Reader) (*Request, error) {
	tp := textproto.NewReader(br)
	line, err := tp.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("%w: read request line: %w", ErrBadRequest, err)
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed request line %q", ErrBadRequest, line)
	}
	req := &Request{Method: parts[0], Version: parts[2]}
	if req.Method != "GET" {
		return nil, fmt.Errorf("%w: method %s not supported", ErrBadRequest, req.Method)
	}
	if req.Version != "HTTP/1.0" && req.Version != "HTTP/1.1" {
		return nil, fmt.Errorf("%w: version %s not supported", ErrBadRequest, req.Version)
	}

	rawPath, rawQuery, _ := strings.Cut(parts[1], "?")
	if !strings.HasPrefix(rawPath, "/") {
		return nil, fmt.Errorf("%w: path %q is not absolute", ErrBadRequest, rawPath)
	}
	if req.Path, err = url.PathUnescape(rawPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if req.Params, err = parseQuery(rawQuery); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	// A client that closes its write side right after the headers still
	// gets an answer.
	if req.Header, err = tp.ReadMIMEHeader(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read headers: %w", ErrBadRequest, err)
	}
	if req.Header == nil {
		req.Header = textproto.MIMEHeader{}
	}
	req.Cookies = response.ParseCookieHeader(strings.Join(req.Header.Values("Cookie"), ";"))
	return req, nil
}

// parseQuery keeps the first value of each parameter.
func parseQuery(raw string) (map[string]string, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params, nil
}
