// Package history records completed table calculations so they can be listed
// and fetched again by id. Records live either in a bounded in-memory ring or
// in a SQLite database.
package history
