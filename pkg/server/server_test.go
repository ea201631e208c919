package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	status  string
	headers map[string][]string
	body    string
}

func (r testResponse) header(name string) string {
	if v := r.headers[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// sid returns the session id from the Set-Cookie header, if any.
func (r testResponse) sid() string {
	for _, c := range r.headers["Set-Cookie"] {
		if v, ok := strings.CutPrefix(c, `sid="`); ok {
			id, _, _ := strings.Cut(v, `"`)
			return id
		}
	}
	return ""
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

var testFiles = map[string]string{
	"index.html":               "hello",
	"data.bin":                 "\x00\x01",
	"style.CSS":                "body{}",
	"loop.smscr":               `{$FOR i 1 3$}{$= i $}{$END$}`,
	"broken.smscr":             `{$FOR i 1 2$}`,
	"fault.smscr":              `before{$= 1 0 / $}after`,
	"counter.smscr":            `{$= "n" "0" @pparamGet 1 + @dup "n" @pparamSet $}`,
	"private/secret.txt":       "secret",
	"private/pages/calc.smscr": `{$= "a" "?" @tparamGet $}+{$= "b" "?" @tparamGet $}={$= "sum" "?" @tparamGet $}`,
	"private/pages/home.smscr": `bg={$= "background" "?" @tparamGet $}`,
	"nested/dir/page.txt":      "nested",
}

func startServer(t *testing.T, mutate func(*Options)) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, testFiles)

	opts := DefaultOptions(root)
	opts.Address = "127.0.0.1"
	opts.Port = 0
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		assert.ErrorIs(t, <-done, ErrServerClosed)
	})
	return srv, ln.Addr().String()
}

func rawRequest(t *testing.T, addr, raw string) testResponse {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, raw)
	require.NoError(t, err)

	data, err := io.ReadAll(bufio.NewReader(conn))
	require.NoError(t, err)

	head, body, ok := strings.Cut(string(data), "\r\n\r\n")
	require.True(t, ok, "response without header terminator: %q", data)
	lines := strings.Split(head, "\r\n")
	resp := testResponse{status: lines[0], headers: map[string][]string{}, body: body}
	for _, l := range lines[1:] {
		name, value, _ := strings.Cut(l, ": ")
		resp.headers[name] = append(resp.headers[name], value)
	}
	return resp
}

func get(t *testing.T, addr, target string, headers ...string) testResponse {
	t.Helper()
	raw := "GET " + target + " HTTP/1.1\r\nHost: localhost\r\n"
	for _, h := range headers {
		raw += h + "\r\n"
	}
	return rawRequest(t, addr, raw+"\r\n")
}

func TestServeStaticFile(t *testing.T) {
	_, addr := startServer(t, nil)

	resp := get(t, addr, "/index.html")
	assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
	assert.Equal(t, "text/html; charset=UTF-8", resp.header("Content-Type"))
	assert.Equal(t, "5", resp.header("Content-Length"))
	assert.Equal(t, "hello", resp.body)

	resp = get(t, addr, "/data.bin")
	assert.Equal(t, "application/octet-stream", resp.header("Content-Type"))
	assert.Equal(t, "\x00\x01", resp.body)

	resp = get(t, addr, "/style.CSS")
	assert.Equal(t, "text/css; charset=UTF-8", resp.header("Content-Type"))

	resp = get(t, addr, "/nested/dir/page.txt")
	assert.Equal(t, "nested", resp.body)
}

func TestServeStatusCodes(t *testing.T) {
	_, addr := startServer(t, nil)

	tests := []struct {
		name   string
		raw    string
		status string
	}{
		{"missing file", "GET /missing.html HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found"},
		{"directory", "GET /nested HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found"},
		{"private file", "GET /private/secret.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"private script", "GET /private/pages/calc.smscr HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"private directory", "GET /private HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"private via dot segments", "GET /nested/../private/secret.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"escaping root", "GET /../outside.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"escaping root encoded", "GET /%2e%2e/outside.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden"},
		{"unknown worker", "GET /ext/NoSuchWorker HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found"},
		{"post", "POST /index.html HTTP/1.1\r\n\r\n", "HTTP/1.1 400 Bad Request"},
		{"bad version", "GET /index.html HTTP/2.0\r\n\r\n", "HTTP/1.1 400 Bad Request"},
		{"malformed line", "GET\r\n\r\n", "HTTP/1.1 400 Bad Request"},
		{"relative path", "GET index.html HTTP/1.1\r\n\r\n", "HTTP/1.1 400 Bad Request"},
		{"parse error", "GET /broken.smscr HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rawRequest(t, addr, tt.raw)
			assert.Equal(t, tt.status, resp.status)
			assert.Equal(t, "text/html; charset=UTF-8", resp.header("Content-Type"))
		})
	}
}

func TestServeScript(t *testing.T) {
	_, addr := startServer(t, nil)

	resp := get(t, addr, "/loop.smscr")
	assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
	assert.Equal(t, "123", resp.body)
	assert.Empty(t, resp.header("Content-Length"))
}

func TestRuntimeFaultKeepsPartialOutput(t *testing.T) {
	srv, addr := startServer(t, nil)

	resp := get(t, addr, "/fault.smscr")
	assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
	assert.Equal(t, "before", resp.body)

	var buf strings.Builder
	require.NoError(t, srv.Metrics().Registry.WriteText(&buf))
	assert.Contains(t, buf.String(), `scriptd_script_errors_total{kind="runtime"} 1`)
}

func TestSessionCookie(t *testing.T) {
	srv, addr := startServer(t, nil)

	first := get(t, addr, "/index.html")
	sid := first.sid()
	require.NotEmpty(t, sid)
	assert.Contains(t, first.header("Set-Cookie"), "Domain=localhost; Path=/; HttpOnly")

	again := get(t, addr, "/index.html", `Cookie: sid="`+sid+`"`)
	assert.Empty(t, again.sid())

	unknown := get(t, addr, "/index.html", `Cookie: sid="ABCDEFGHIJKLMNOPQRST"`)
	assert.NotEmpty(t, unknown.sid())
	assert.NotEqual(t, sid, unknown.sid())

	otherHost := rawRequest(t, addr, "GET /index.html HTTP/1.1\r\nHost: example.org:8080\r\nCookie: sid="+sid+"\r\n\r\n")
	assert.NotEmpty(t, otherHost.sid())
	assert.Contains(t, otherHost.header("Set-Cookie"), "Domain=example.org;")

	_, ok := srv.Sessions().Lookup(sid, time.Now())
	assert.False(t, ok, "session moved to another host is dropped")
}

func TestSessionCookieIgnoresInvalidHost(t *testing.T) {
	_, addr := startServer(t, nil)

	tests := []struct {
		name   string
		host   string
		domain string
	}{
		{"non latin-1", "ž.example", "localhost"},
		{"attribute injection", "x; Path=/evil", "localhost"},
		{"quote", `x"y`, "localhost"},
		{"ipv6 literal", "[::1]:8080", "::1"},
		{"plain name", "Example.org", "Example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rawRequest(t, addr, "GET /index.html HTTP/1.1\r\nHost: "+tt.host+"\r\n\r\n")
			assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
			assert.Equal(t, "hello", resp.body)
			assert.Equal(t, `sid="`+resp.sid()+`"; Domain=`+tt.domain+"; Path=/; HttpOnly", resp.header("Set-Cookie"))
		})
	}
}

func TestRequestMetricsUseBoundedRoutes(t *testing.T) {
	srv, addr := startServer(t, nil)

	for i := range 50 {
		resp := get(t, addr, fmt.Sprintf("/missing-%d.html", i))
		require.Equal(t, "HTTP/1.1 404 Not Found", resp.status)
	}
	get(t, addr, "/private/secret.txt")
	get(t, addr, "/index.html")
	get(t, addr, "/nested/../index.html")
	get(t, addr, "/calc?a=1&b=1")
	get(t, addr, "/ext/NoSuchWorker")
	rawRequest(t, addr, "DELETE /x HTTP/1.1\r\n\r\n")

	var buf strings.Builder
	require.NoError(t, srv.Metrics().Registry.WriteText(&buf))

	var series []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "scriptd_requests_total{") {
			series = append(series, line)
		}
	}
	assert.ElementsMatch(t, []string{
		`scriptd_requests_total{route="other",status="400"} 1`,
		`scriptd_requests_total{route="other",status="403"} 1`,
		`scriptd_requests_total{route="other",status="404"} 51`,
		`scriptd_requests_total{route="/index.html",status="200"} 2`,
		`scriptd_requests_total{route="/calc",status="200"} 1`,
	}, series)
}

func TestSessionExpires(t *testing.T) {
	_, addr := startServer(t, func(o *Options) {
		o.SessionTimeout = 50 * time.Millisecond
	})

	sid := get(t, addr, "/index.html").sid()
	require.NotEmpty(t, sid)
	time.Sleep(120 * time.Millisecond)

	resp := get(t, addr, "/index.html", `Cookie: sid="`+sid+`"`)
	assert.NotEmpty(t, resp.sid())
	assert.NotEqual(t, sid, resp.sid())
}

func TestPersistentParamsFollowSession(t *testing.T) {
	_, addr := startServer(t, nil)

	first := get(t, addr, "/counter.smscr")
	assert.Equal(t, "1", first.body)
	cookie := `Cookie: sid="` + first.sid() + `"`

	assert.Equal(t, "2", get(t, addr, "/counter.smscr", cookie).body)
	assert.Equal(t, "3", get(t, addr, "/counter.smscr", cookie).body)
	assert.Equal(t, "1", get(t, addr, "/counter.smscr").body)
}

func TestWorkers(t *testing.T) {
	_, addr := startServer(t, nil)

	t.Run("route forwards to private script", func(t *testing.T) {
		resp := get(t, addr, "/calc?a=3&b=4")
		assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
		assert.Equal(t, "3+4=7", resp.body)
	})

	t.Run("calc defaults", func(t *testing.T) {
		assert.Equal(t, "1+2=3", get(t, addr, "/calc?a=x").body)
	})

	t.Run("extension prefix", func(t *testing.T) {
		resp := get(t, addr, "/ext/EchoParams?color=red")
		assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
		assert.Contains(t, resp.body, "<td>color</td><td>red</td>")
	})

	t.Run("background colour in session", func(t *testing.T) {
		home := get(t, addr, "/index2.html")
		assert.Equal(t, "bg=7F7F7F", home.body)
		cookie := `Cookie: sid="` + home.sid() + `"`

		set := get(t, addr, "/setbgcolor?bgcolor=00ff00", cookie)
		assert.Contains(t, set.body, "Color updated.")
		assert.Equal(t, "bg=00FF00", get(t, addr, "/index2.html", cookie).body)

		bad := get(t, addr, "/setbgcolor?bgcolor=zzz", cookie)
		assert.Contains(t, bad.body, "Color not updated.")
		assert.Equal(t, "bg=00FF00", get(t, addr, "/index2.html", cookie).body)
	})

	t.Run("circle", func(t *testing.T) {
		resp := get(t, addr, "/cw")
		assert.Equal(t, "image/png", resp.header("Content-Type"))
		assert.Equal(t, "\x89PNG", resp.body[:4])
	})

	t.Run("params json", func(t *testing.T) {
		resp := get(t, addr, "/params.json?x=1&select=$.params.x")
		assert.Equal(t, "application/json", resp.header("Content-Type"))
		assert.Equal(t, `["1"]`, resp.body)
	})

	t.Run("metrics", func(t *testing.T) {
		resp := get(t, addr, "/metrics")
		assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
		assert.Contains(t, resp.body, "scriptd_requests_total")
		assert.Contains(t, resp.body, "go_goroutines")
	})
}

func TestScriptCacheReloadsChangedFiles(t *testing.T) {
	srv, addr := startServer(t, nil)

	assert.Equal(t, "123", get(t, addr, "/loop.smscr").body)
	assert.Equal(t, "123", get(t, addr, "/loop.smscr").body)
	assert.Equal(t, 1, srv.cache.len())

	full := filepath.Join(srv.root, "loop.smscr")
	require.NoError(t, os.WriteFile(full, []byte(`{$FOR i 1 4$}{$= i $}{$END$}`), 0o644))
	assert.Equal(t, "1234", get(t, addr, "/loop.smscr").body)
	assert.Equal(t, 1, srv.cache.len())

	get(t, addr, "/broken.smscr")
	assert.Equal(t, 1, srv.cache.len())
}

func TestScriptCacheDisabled(t *testing.T) {
	srv, addr := startServer(t, func(o *Options) { o.ScriptCache = false })

	assert.Equal(t, "123", get(t, addr, "/loop.smscr").body)
	assert.Nil(t, srv.cache)
}

func TestStrictFunctions(t *testing.T) {
	srv, addr := startServer(t, func(o *Options) { o.StrictFunctions = true })
	writeFiles(t, srv.root, map[string]string{"unknown.smscr": `{$= 1 @nosuch $}`})

	resp := get(t, addr, "/unknown.smscr")
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", resp.status)
}

func TestLenientFunctions(t *testing.T) {
	srv, addr := startServer(t, nil)
	writeFiles(t, srv.root, map[string]string{"unknown.smscr": `{$= 1 @nosuch $}`})

	resp := get(t, addr, "/unknown.smscr")
	assert.Equal(t, "HTTP/1.1 200 OK", resp.status)
	assert.Equal(t, "1", resp.body)
}

func TestConcurrentClients(t *testing.T) {
	_, addr := startServer(t, func(o *Options) { o.Workers = 2 })

	type result struct {
		body string
		err  error
	}
	results := make(chan result, 20)
	for range 20 {
		go func() {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				results <- result{err: err}
				return
			}
			defer conn.Close()
			if _, err := io.WriteString(conn, "GET /loop.smscr HTTP/1.0\r\n\r\n"); err != nil {
				results <- result{err: err}
				return
			}
			data, err := io.ReadAll(conn)
			_, body, _ := strings.Cut(string(data), "\r\n\r\n")
			results <- result{body: body, err: err}
		}()
	}
	for range 20 {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, "123", r.body)
	}
}

func TestShutdownBeforeServe(t *testing.T) {
	srv, err := New(DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(ln), ErrServerClosed)
	assert.Nil(t, srv.Addr())
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions("")
	opts.PrivatePatterns = []string{"/private/["}
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "worker", errorKind(ErrWorker))
	assert.Equal(t, "io", errorKind(os.ErrNotExist))
}
