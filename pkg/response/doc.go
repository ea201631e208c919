// Package response holds the per-request response state and output sink.
//
// A Context collects the status line, Content-Type, optional Content-Length
// and Set-Cookie lines, and writes them as one header block on the first
// payload write. After that every header mutator returns ErrHeaderSent.
//
// Three parameter maps travel with a request: read-only request parameters,
// per-request temporary parameters, and persistent parameters shared with
// the client's session.
package response
