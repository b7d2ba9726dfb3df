// Package tasks keeps the registry of analysis tasks and runs them on a
// bounded worker pool.
//
// A task moves queued → processing → completed | failed and its progress
// never decreases. Stores enforce the contract, Manager drives it.
package tasks
