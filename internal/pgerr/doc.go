// Package pgerr maps PostgreSQL and network failures onto the loader's error kinds.
//
// The loader never retries: a connection-level failure ends the run with
// olist.ErrConnectionFailed, everything else is attributed to the component
// that issued the statement (structural DDL, bulk load, validation).
package pgerr
