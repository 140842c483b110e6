/*
Package buffer implements the buffer pool manager instance (BPMI): the
owner of a fixed-size slab of page frames, the page-id-to-frame directory,
the free-frame list, and pin-count/dirty metadata. It orchestrates those
under a single lock and delegates victim selection to a
storage/replacer.Replacer.

Every public method acquires Manager's mutex on entry and releases it on
every return path. Disk i/o (and the optional WAL flush-ordering hook) is
performed while still holding that lock — this is the buffer pool's
principal scalability limit, and sharding across several Managers via
parallel.Manager is the intended mitigation, not finer-grained locking
within one instance.
*/
package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Garen-Wang/bustub/storage/page"
	"github.com/Garen-Wang/bustub/storage/replacer"
)

// Manager is one buffer pool manager instance (one shard, in sharded-pool
// terms).
type Manager struct {
	mu sync.Mutex

	cfg Config

	frames    []Frame
	directory map[page.PageID]FrameID
	freeList  []FrameID
	replacer  replacer.Replacer

	nextPageID page.PageID
}

// NewManager constructs a Manager per cfg. Frames start entirely on the
// free list, in frame-index order (0..PoolSize-1), matching the free
// list's FIFO-on-construction rule.
func NewManager(cfg Config) *Manager {
	cfg.normalize()

	m := &Manager{
		cfg:        cfg,
		frames:     newFrames(cfg.PoolSize),
		directory:  make(map[page.PageID]FrameID, cfg.PoolSize),
		freeList:   make([]FrameID, cfg.PoolSize),
		replacer:   replacer.NewClockReplacer(cfg.PoolSize),
		nextPageID: page.PageID(cfg.InstanceIndex),
	}
	for i := range m.freeList {
		m.freeList[i] = FrameID(i)
	}
	return m
}

// PoolSize returns the number of frames this instance manages.
func (m *Manager) PoolSize() int { return len(m.frames) }

// FetchPage returns the frame holding page_id, pinning it, reading it from
// disk first if it is not already resident. It returns (nil, nil) when no
// frame is available (every frame pinned and the replacer has no victim),
// per the buffer pool's error handling design: resource exhaustion is a
// documented outcome, not a Go error.
func (m *Manager) FetchPage(id page.PageID) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.directory[id]; ok {
		f := &m.frames[fid]
		f.PinCount++
		m.replacer.Pin(replacer.FrameID(fid))
		m.cfg.Logger.Hit(id, f.PinCount)
		return f, nil
	}
	m.cfg.Logger.Miss(id)

	fid, ok, err := m.allocateFrameLocked()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	f := &m.frames[fid]
	m.directory[id] = fid
	for i := range f.Data {
		f.Data[i] = 0
	}
	if err := m.cfg.Disk.ReadPage(id, f.Data); err != nil {
		delete(m.directory, id)
		f.reset()
		m.freeList = append([]FrameID{fid}, m.freeList...)
		return nil, errors.Wrap(err, "disk.ReadPage failed")
	}
	f.PageID = id
	f.PinCount = 1
	f.IsDirty = false
	m.replacer.Pin(replacer.FrameID(fid))
	return f, nil
}

// NewPage allocates a fresh page id via AllocatePage, backs it with a
// frame, and returns both, pinned. The new page is marked dirty so that,
// even if the caller never explicitly writes to it, flush/eviction still
// carries its allocation to disk. Returns (nil, InvalidPageID, nil) when
// every frame is currently pinned.
func (m *Manager) NewPage() (*Frame, page.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allPinned := true
	for i := range m.frames {
		if m.frames[i].PinCount <= 0 {
			allPinned = false
			break
		}
	}
	if allPinned {
		return nil, page.InvalidPageID, nil
	}

	fid, ok, err := m.allocateFrameLocked()
	if err != nil {
		return nil, page.InvalidPageID, err
	}
	if !ok {
		return nil, page.InvalidPageID, nil
	}

	id := m.allocatePageLocked()
	f := &m.frames[fid]
	m.directory[id] = fid
	for i := range f.Data {
		f.Data[i] = 0
	}
	f.PageID = id
	f.PinCount = 1
	f.IsDirty = true
	m.replacer.Pin(replacer.FrameID(fid))
	m.cfg.Logger.NewPage(id)
	return f, id, nil
}

// UnpinPage decrements page_id's pin count, marking its frame evictable
// once the count reaches zero. callerDirty is OR'd into the frame's sticky
// dirty flag. Returns false if page_id is not resident or already has a
// zero pin count.
func (m *Manager) UnpinPage(id page.PageID, callerDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.directory[id]
	if !ok {
		return false
	}
	f := &m.frames[fid]
	if f.PinCount == 0 {
		return false
	}
	f.PinCount--
	if f.PinCount == 0 {
		m.replacer.Unpin(replacer.FrameID(fid))
	}
	f.IsDirty = f.IsDirty || callerDirty
	return true
}

// FlushPage writes page_id's frame to disk unconditionally and clears its
// dirty flag. Safe to call on a pinned page. Returns false if page_id is
// not resident.
func (m *Manager) FlushPage(id page.PageID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.directory[id]
	if !ok {
		return false, nil
	}
	if err := m.flushFrameLocked(fid); err != nil {
		return false, err
	}
	return true, nil
}

// FlushAllPages writes every resident page's buffer to disk, clearing
// dirty flags as it goes.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, fid := range m.directory {
		if err := m.flushFrameLocked(fid); err != nil {
			return errors.Wrapf(err, "flush page %d failed", id)
		}
	}
	return nil
}

// DeletePage removes page_id from the pool. If it is not resident, only the
// disk allocator's deallocation hook runs. If it is resident and pinned,
// DeletePage refuses and returns false. Otherwise the frame is reset and
// pushed to the front of the free list, so it is reused before older free
// frames.
func (m *Manager) DeletePage(id page.PageID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.directory[id]
	if !ok {
		if err := m.cfg.Disk.DeallocatePage(id); err != nil {
			return false, errors.Wrap(err, "disk.DeallocatePage failed")
		}
		return true, nil
	}

	f := &m.frames[fid]
	if f.PinCount > 0 {
		return false, nil
	}

	f.reset()
	m.freeList = append([]FrameID{fid}, m.freeList...)
	delete(m.directory, id)
	m.cfg.Logger.Delete(id)

	if err := m.cfg.Disk.DeallocatePage(id); err != nil {
		return false, errors.Wrap(err, "disk.DeallocatePage failed")
	}
	return true, nil
}

// AllocatePage returns the next page id for this instance and advances the
// counter by the instance stride, so id mod NumInstances == InstanceIndex
// for every id this instance ever allocates. Exported so a sharded wrapper
// (see package parallel) can pre-allocate an id before dispatching to the
// owning instance if it ever needs to.
func (m *Manager) AllocatePage() page.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocatePageLocked()
}

func (m *Manager) allocatePageLocked() page.PageID {
	id := m.nextPageID
	m.nextPageID += page.PageID(m.cfg.NumInstances)
	if int(id)%m.cfg.NumInstances != m.cfg.InstanceIndex {
		panic("buffer: allocated page id does not belong to this instance's shard")
	}
	return id
}

// allocateFrameLocked obtains a frame slot: the free list first, then the
// replacer. A victim taken from the replacer that is dirty is flushed
// before reuse, and its old directory entry (if any) is removed. Returns
// ok == false if neither source has a frame to offer.
func (m *Manager) allocateFrameLocked() (FrameID, bool, error) {
	if n := len(m.freeList); n > 0 {
		fid := m.freeList[0]
		m.freeList = m.freeList[1:]
		return fid, true, nil
	}

	victim, ok := m.replacer.Victim()
	if !ok {
		return 0, false, nil
	}
	fid := FrameID(victim)
	f := &m.frames[fid]
	wasDirty := f.IsDirty
	if wasDirty {
		if err := m.flushFrameLocked(fid); err != nil {
			// The Replacer already dropped fid when it handed it over as a
			// victim, but the old page is still resident (its directory
			// entry is only removed below, after a successful flush) and
			// still unpinned. Re-register it so it remains a future victim
			// candidate instead of being stranded outside both the free
			// list and the Replacer.
			m.replacer.Unpin(replacer.FrameID(fid))
			return 0, false, err
		}
	}
	if f.PageID != page.InvalidPageID {
		m.cfg.Logger.Evict(f.PageID, wasDirty)
		delete(m.directory, f.PageID)
	}
	return fid, true, nil
}

// flushFrameLocked writes a resident frame's buffer to disk and clears its
// dirty flag, without acquiring m.mu. It is the private helper backing
// FlushPage's public, locked entry point and NewPage/FetchPage's eviction
// path, which are already holding the lock when they need to flush.
func (m *Manager) flushFrameLocked(fid FrameID) error {
	f := &m.frames[fid]
	if f.PageID == page.InvalidPageID {
		return nil
	}
	if m.cfg.LSNFromPage != nil {
		lsn := m.cfg.LSNFromPage(f.Data)
		if lsn > m.cfg.Log.FlushedLSN() {
			if err := m.cfg.Log.Flush(lsn); err != nil {
				return errors.Wrap(err, "wal.Manager.Flush failed")
			}
		}
	}
	if err := m.cfg.Disk.WritePage(f.PageID, f.Data); err != nil {
		return errors.Wrap(err, "disk.WritePage failed")
	}
	f.IsDirty = false
	m.cfg.Logger.Flush(f.PageID)
	return nil
}
