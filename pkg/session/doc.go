// Package session keeps per-client state between requests.
//
// A client is identified by the sid cookie. Store.Resolve either renews the
// matching session or, when the cookie is missing, unknown, expired or was
// issued for another host, silently creates a fresh one. Expired sessions
// are removed by SweepExpired, which Run calls on a fixed interval.
package session
