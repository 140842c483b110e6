/*
Package wal defines the log-manager flush-ordering hook the buffer pool
manager instance consults before writing a dirty page.

The buffer pool core never sequences or groups log records itself; it only
asks the log manager whether a given LSN has already been made durable and,
if not, asks it to flush up to that point. An implementation may omit this
entirely by wiring NoopManager, which is what a deployment with WAL disabled
uses.
*/
package wal

// Manager is the log-manager collaborator consumed by the buffer pool.
type Manager interface {
	// FlushedLSN returns the highest log sequence number known to be
	// durable on disk.
	FlushedLSN() uint64
	// Flush durably writes the log up to and including uptoLSN.
	Flush(uptoLSN uint64) error
}

// NoopManager satisfies Manager without maintaining any log at all. It is
// the default when WAL is disabled: FlushedLSN reports everything as
// already flushed, so the buffer pool never blocks on it.
type NoopManager struct{}

// FlushedLSN implements Manager.
func (NoopManager) FlushedLSN() uint64 { return ^uint64(0) }

// Flush implements Manager.
func (NoopManager) Flush(uint64) error { return nil }

var _ Manager = NoopManager{}
