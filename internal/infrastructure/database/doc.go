// Package database provides SQLite storage for the SDK's local state.
//
// This package manages:
//   - Database connection with optional WAL mode
//   - Embedded schema migrations (NNN_name.up.sql / NNN_name.down.sql)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to 0600
//   - Entries that carry LAN keys are encrypted before they reach this layer
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
