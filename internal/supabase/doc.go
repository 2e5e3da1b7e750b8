// Package supabase stores the library in a Supabase project through its PostgREST endpoint.
//
// [Store] and [RelationStore] satisfy the same contracts as the SQLite repositories, so the
// reconciliation engine can write to either. Rows are exchanged as JSON using the column names of
// the spotify_* tables; store identifiers and timestamps are assigned by the database.
//
// Uniqueness violations (HTTP 409 or Postgres code 23505) are reported as [shared.ErrDuplicateKey].
// A write that returns no representation is a [shared.ErrStoreWrite].
package supabase
