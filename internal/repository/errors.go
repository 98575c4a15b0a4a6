// Package repository holds the SQL access layer of the gateway. The only
// table it owns stores session credentials for the mysql credential
// backend.
package repository

import "errors"

// ErrNotFound is returned when no row exists for the requested scope and
// name. The credential store translates it into an absent value.
var ErrNotFound = errors.New("not found")
