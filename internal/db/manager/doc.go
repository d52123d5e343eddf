// Package manager provides the server-level operations behind `olistload setup`:
// checking whether the target database exists, creating it, and listing the
// schemas of a database.
//
// Database names are quoted with pgx.Identifier.Sanitize(), so names with
// spaces, quotes, or mixed case are handled.
//
// # Example Usage
//
//	mgr := manager.New()
//
//	exists, err := mgr.Exists(ctx, adminConn, "olist_analytics")
//	if err == nil && !exists {
//	    err = mgr.Create(ctx, adminConn, "olist_analytics")
//	}
package manager
