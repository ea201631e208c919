package response

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// HeaderState tracks whether the response header has been written.
type HeaderState int

const (
	// HeaderPending means header fields may still change.
	HeaderPending HeaderState = iota
	// HeaderSent means the header is on the wire and header fields are frozen.
	HeaderSent
)

// String returns the state name.
func (s HeaderState) String() string {
	if s == HeaderSent {
		return "sent"
	}
	return "pending"
}

// Response context errors.
var (
	// ErrHeaderSent is returned by header mutators after the first write.
	ErrHeaderSent = errors.New("response header already sent")

	// ErrUnknownEncoding is returned when a charset has no known encoder.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrNoDispatcher is returned by Dispatch on a context built without one.
	ErrNoDispatcher = errors.New("no dispatcher attached")
)

// Defaults for a fresh context.
const (
	DefaultStatusCode = 200
	DefaultStatusText = "OK"
	DefaultMimeType   = "text/html"
	DefaultEncoding   = "UTF-8"
)

// Dispatcher runs an internal request for path against the same context.
// Internal requests may reach paths that are forbidden to clients.
type Dispatcher interface {
	Dispatch(path string, ctx *Context) error
}

// Context accumulates the response for one request and writes it to its
// sink. The header goes out automatically, exactly once, before the first
// payload byte. A Context is owned by a single goroutine.
type Context struct {
	out io.Writer

	state         HeaderState
	statusCode    int
	statusText    string
	mimeType      string
	encoding      string
	encoder       *encoding.Encoder
	contentLength int64
	hasLength     bool
	cookies       []Cookie
	suppressHead  bool

	params     map[string]string
	temp       map[string]string
	persistent *Params

	sessionID  string
	dispatcher Dispatcher

	written int64
}

// Option configures a Context.
type Option func(*Context)

// WithParams sets the read-only request parameters.
func WithParams(params map[string]string) Option {
	return func(c *Context) {
		c.params = maps.Clone(params)
	}
}

// WithPersistent attaches the session-backed parameter map.
func WithPersistent(p *Params) Option {
	return func(c *Context) {
		if p != nil {
			c.persistent = p
		}
	}
}

// WithCookies seeds the outgoing cookie list.
func WithCookies(cookies ...Cookie) Option {
	return func(c *Context) {
		c.cookies = append(c.cookies, cookies...)
	}
}

// WithSessionID records the id of the session this request resolved to.
func WithSessionID(id string) Option {
	return func(c *Context) {
		c.sessionID = id
	}
}

// WithDispatcher enables internal dispatch from workers and scripts.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Context) {
		c.dispatcher = d
	}
}

// WithoutHeader keeps the header state machine but never writes the header
// bytes. Used when rendering a script to a terminal or file.
func WithoutHeader() Option {
	return func(c *Context) {
		c.suppressHead = true
	}
}

// New creates a context writing to out.
func New(out io.Writer, opts ...Option) *Context {
	c := &Context{
		out:        out,
		statusCode: DefaultStatusCode,
		statusText: DefaultStatusText,
		mimeType:   DefaultMimeType,
		encoding:   DefaultEncoding,
		params:     map[string]string{},
		temp:       map[string]string{},
		persistent: NewParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the header state.
func (c *Context) State() HeaderState { return c.state }

// HeaderSent reports whether the header has been written.
func (c *Context) HeaderSent() bool { return c.state == HeaderSent }

func (c *Context) StatusCode() int    { return c.statusCode }
func (c *Context) StatusText() string { return c.statusText }
func (c *Context) MimeType() string   { return c.mimeType }
func (c *Context) Encoding() string   { return c.encoding }

// ContentLength returns the declared content length, if any.
func (c *Context) ContentLength() (int64, bool) { return c.contentLength, c.hasLength }

// BytesWritten counts payload bytes written so far, header excluded.
func (c *Context) BytesWritten() int64 { return c.written }

// SessionID returns the session id, or "" outside a session.
func (c *Context) SessionID() string { return c.sessionID }

// Dispatcher returns the attached dispatcher or nil.
func (c *Context) Dispatcher() Dispatcher { return c.dispatcher }

// Dispatch runs path through the attached dispatcher as an internal request.
func (c *Context) Dispatch(path string) error {
	if c.dispatcher == nil {
		return ErrNoDispatcher
	}
	return c.dispatcher.Dispatch(path, c)
}

func (c *Context) checkPending(field string) error {
	if c.state == HeaderSent {
		return fmt.Errorf("%w: cannot set %s", ErrHeaderSent, field)
	}
	return nil
}

// SetStatusCode sets the numeric status.
func (c *Context) SetStatusCode(code int) error {
	if err := c.checkPending("status code"); err != nil {
		return err
	}
	c.statusCode = code
	return nil
}

// SetStatusText sets the reason phrase.
func (c *Context) SetStatusText(text string) error {
	if err := c.checkPending("status text"); err != nil {
		return err
	}
	c.statusText = text
	return nil
}

// SetStatus sets the code and its standard reason phrase.
func (c *Context) SetStatus(code int) error {
	if err := c.SetStatusCode(code); err != nil {
		return err
	}
	text := http.StatusText(code)
	if text == "" {
		text = "Status " + strconv.Itoa(code)
	}
	return c.SetStatusText(text)
}

// SetMimeType sets the Content-Type media type.
func (c *Context) SetMimeType(mime string) error {
	if err := c.checkPending("mime type"); err != nil {
		return err
	}
	c.mimeType = mime
	return nil
}

// SetEncoding sets the charset used for text output and the Content-Type
// charset parameter.
func (c *Context) SetEncoding(name string) error {
	if err := c.checkPending("encoding"); err != nil {
		return err
	}
	enc, err := lookupEncoding(name)
	if err != nil {
		return err
	}
	c.encoding = name
	c.encoder = enc
	return nil
}

// SetContentLength declares the payload size.
func (c *Context) SetContentLength(n int64) error {
	if err := c.checkPending("content length"); err != nil {
		return err
	}
	c.contentLength = n
	c.hasLength = true
	return nil
}

// AddCookie queues a Set-Cookie header.
func (c *Context) AddCookie(cookie Cookie) error {
	if err := c.checkPending("cookie"); err != nil {
		return err
	}
	c.cookies = append(c.cookies, cookie)
	return nil
}

// Cookies returns a copy of the outgoing cookies.
func (c *Context) Cookies() []Cookie { return slices.Clone(c.cookies) }

// Param returns a request parameter.
func (c *Context) Param(name string) (string, bool) {
	v, ok := c.params[name]
	return v, ok
}

// ParamNames returns request parameter names in sorted order.
func (c *Context) ParamNames() []string {
	return slices.Sorted(maps.Keys(c.params))
}

// Params returns a copy of the request parameters.
func (c *Context) Params() map[string]string { return maps.Clone(c.params) }

// TempParam returns a temporary parameter.
func (c *Context) TempParam(name string) (string, bool) {
	v, ok := c.temp[name]
	return v, ok
}

// SetTempParam stores a temporary parameter.
func (c *Context) SetTempParam(name, value string) { c.temp[name] = value }

// DeleteTempParam removes a temporary parameter.
func (c *Context) DeleteTempParam(name string) { delete(c.temp, name) }

// TempParamNames returns temporary parameter names in sorted order.
func (c *Context) TempParamNames() []string {
	return slices.Sorted(maps.Keys(c.temp))
}

// PersistentParam returns a session parameter.
func (c *Context) PersistentParam(name string) (string, bool) { return c.persistent.Get(name) }

// SetPersistentParam stores a session parameter.
func (c *Context) SetPersistentParam(name, value string) { c.persistent.Set(name, value) }

// DeletePersistentParam removes a session parameter.
func (c *Context) DeletePersistentParam(name string) { c.persistent.Delete(name) }

// Persistent returns the session parameter map.
func (c *Context) Persistent() *Params { return c.persistent }

// Write sends raw payload bytes, emitting the header first if needed.
func (c *Context) Write(p []byte) (int, error) {
	if err := c.ensureHeader(); err != nil {
		return 0, err
	}
	n, err := c.out.Write(p)
	c.written += int64(n)
	return n, err
}

// WriteString encodes s in the context encoding and writes it.
func (c *Context) WriteString(s string) (int, error) {
	if err := c.ensureHeader(); err != nil {
		return 0, err
	}
	data := []byte(s)
	if c.encoder != nil {
		encoded, err := c.encoder.Bytes(data)
		if err != nil {
			return 0, fmt.Errorf("encode as %s: %w", c.encoding, err)
		}
		data = encoded
	}
	n, err := c.out.Write(data)
	c.written += int64(n)
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

// Flush emits the header if it has not been sent. Responses without a body
// use it to commit their status.
func (c *Context) Flush() error {
	return c.ensureHeader()
}

func (c *Context) ensureHeader() error {
	if c.state == HeaderSent {
		return nil
	}
	if c.suppressHead {
		c.state = HeaderSent
		return nil
	}
	// A header that cannot be rendered leaves the context pending so the
	// caller can still replace it with an error response.
	head, err := c.header()
	if err != nil {
		return err
	}
	c.state = HeaderSent
	_, err = c.out.Write(head)
	return err
}

// Header renders the header block from the current fields.
func (c *Context) Header() ([]byte, error) {
	return c.header()
}

func (c *Context) header() ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\n", c.statusCode, c.statusText)
	sb.WriteString("Content-Type: ")
	sb.WriteString(c.mimeType)
	if strings.HasPrefix(c.mimeType, "text/") {
		sb.WriteString("; charset=")
		sb.WriteString(c.encoding)
	}
	sb.WriteString("\r\n")
	if c.hasLength {
		sb.WriteString("Content-Length: ")
		sb.WriteString(strconv.FormatInt(c.contentLength, 10))
		sb.WriteString("\r\n")
	}
	for _, cookie := range c.cookies {
		sb.WriteString(cookie.headerLine())
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")

	head, err := charmap.ISO8859_1.NewEncoder().String(sb.String())
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return []byte(head), nil
}

func lookupEncoding(name string) (*encoding.Encoder, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return nil, nil
	}
	return enc.NewEncoder(), nil
}
