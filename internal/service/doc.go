// Package service implements the application operations behind the HTTP API:
// accounts and token balances, projects and their source documents, content
// generation jobs and project chat.
//
// Services own transaction boundaries. Stores are used through the interfaces
// in package store, and each write that must be atomic runs inside
// store.RunInTransaction with stores bound to the transaction via WithTx.
// Background work is requested by emitting events after the transaction
// commits, so a worker never sees a job whose row is not yet visible.
package service
