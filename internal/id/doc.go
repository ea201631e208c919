// Package id generates random identifiers.
//
//   - SessionID: 20 uppercase letters, carried in the sid cookie
//   - Letters: random uppercase strings of any length
//
// All generators read from crypto/rand.
package id
