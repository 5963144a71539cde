// Package usage tracks how often and how recently each host was launched.
//
// The Tracker keeps counts in memory and writes each change through to a
// storage.UsageRepository. Storage trouble never stops the tracker: on a
// failed write it logs once, stops writing, and carries on in memory for
// the rest of the session.
//
// Queries read usage through a View, an immutable copy published on every
// change, so ranking one query sees one consistent set of numbers without
// taking the tracker's lock.
package usage
