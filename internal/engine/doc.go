// Package engine is the boundary facade over the dealbook store.
//
// An Engine carries the store, the relationship registry, the clock and the
// id generator. Nothing is global: the actor is resolved per call from the
// store and passed explicitly to the components that attribute writes.
//
// Write path:
//  1. ApplyChanges checks the batch against the batch quota
//  2. the mutation applier runs every edit in one transaction
//  3. ledger rows and the optional snapshot commit with the edits
//
// Reads (views, events, snapshots, relations) run outside any write
// transaction and see the last commit.
//
// The engine assumes a single local writer. SQLite serializes writers on the
// one pooled connection; there is no application-level locking.
package engine
