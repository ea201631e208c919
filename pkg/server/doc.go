// Package server implements the scriptd request loop.
//
// A connection carries exactly one GET request. The server parses the
// request line and headers, resolves the caller's session from the sid
// cookie, and routes the path:
//
//   - paths matching a private pattern are refused with 403
//   - /ext/<name> and configured routes run a worker
//   - files ending in the script extension are executed
//   - other files under the document root are streamed as-is
//
// Workers and scripts may forward to any path, private ones included,
// through the response context's dispatcher.
package server
