// Package monitor tracks books for new chapters. A small SQLite store
// remembers each watched book and the latest chapter seen; the checker
// refetches the book pages concurrently and reports which books have
// updates since the last check.
package monitor
