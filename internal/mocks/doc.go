// Package mocks provides in-memory implementations of the store, object
// storage, event and generation interfaces for tests in other packages.
//
// Each mock keeps its data in exported maps so tests can seed and inspect
// state directly, and exposes error fields that, when set, are returned by
// the corresponding method. WithTx returns the receiver, so the mocks can be
// used with store.RunInTransaction over a go-sqlmock database.
package mocks
