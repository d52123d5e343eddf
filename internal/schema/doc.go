// Package schema holds the Olist table catalog and the bootstrapper that
// recreates the namespace and its tables.
//
// The catalog is plain Go data: every table knows its columns, key, foreign
// keys, source file, and whether it is loaded directly or reconciled through
// a staging table. Creation order is derived from the foreign-key graph.
package schema
