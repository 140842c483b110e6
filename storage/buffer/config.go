package buffer

import (
	"github.com/Garen-Wang/bustub/eventlog"
	"github.com/Garen-Wang/bustub/storage/disk"
	"github.com/Garen-Wang/bustub/storage/page"
	"github.com/Garen-Wang/bustub/wal"
)

// Config configures one Manager (buffer pool manager instance / BPMI).
//
// NumInstances and InstanceIndex describe this instance's position within a
// (possibly single-member) sharded pool: the ids this instance allocates
// via AllocatePage all satisfy id mod NumInstances == InstanceIndex.
type Config struct {
	// PoolSize is the number of frames this instance manages. Must be > 0.
	PoolSize int
	// NumInstances is the number of instances sharing the page-id space.
	// Must be >= 1; defaults to 1 (no sharding) when left zero.
	NumInstances int
	// InstanceIndex is this instance's shard index. Must be < NumInstances.
	InstanceIndex int
	// Disk is the disk manager collaborator. Required.
	Disk disk.Manager
	// Log is the log-manager flush-ordering hook. Optional; defaults to
	// wal.NoopManager{} (WAL disabled) when nil.
	Log wal.Manager
	// LSNFromPage extracts a page's LSN so it can be compared against
	// Log.FlushedLSN() before a dirty write-back. Optional; when nil, the
	// log hook is never consulted (WAL disabled).
	LSNFromPage page.LSNFromPage
	// Logger is the optional diagnostic event stream. Nil disables it.
	Logger *eventlog.Logger
}

// normalize fills in defaults and panics on a config a caller could never
// legitimately construct at runtime — a positive PoolSize, a disk manager,
// and a valid instance index are all preconditions the caller controls, so
// violating them is a programmer error rather than a documented failure
// mode (see the buffer pool's error handling design).
func (c *Config) normalize() {
	if c.PoolSize <= 0 {
		panic("buffer: PoolSize must be positive")
	}
	if c.NumInstances == 0 {
		c.NumInstances = 1
	}
	if c.InstanceIndex >= c.NumInstances {
		panic("buffer: InstanceIndex must be less than NumInstances")
	}
	if c.Disk == nil {
		panic("buffer: Disk manager is required")
	}
	if c.Log == nil {
		c.Log = wal.NoopManager{}
	}
}
