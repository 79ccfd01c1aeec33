// Package idempotency collapses repeated submissions of the same command into a single execution.
//
// A caller starts with Store.TryBegin. The first submitter for a (caller, key) pair gets a Handle
// bound to an open transaction and must finish with Store.Complete, which saves the response and
// commits in one step. Every later submitter gets the saved response back. A submitter that races
// with an in-flight first submitter blocks inside TryBegin until that transaction resolves.
package idempotency
