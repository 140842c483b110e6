package disk

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Garen-Wang/bustub/storage/page"
)

// MemoryManager is an in-process stand-in for a disk manager, backed by a
// map instead of a file. Tests use it so the buffer pool manager instance's
// unit tests never touch the filesystem, mirroring the buffer-storage
// pattern the disk manager's test helpers use for the same reason.
type MemoryManager struct {
	mu    sync.Mutex
	pages map[page.PageID][]byte

	// WriteCount/ReadCount record how many times each page id has been
	// written/read, so tests can assert that a particular write actually
	// happened (e.g. a dirty page evicted during NewPage) rather than just
	// inferring it from later reads.
	WriteCount map[page.PageID]int
	ReadCount  map[page.PageID]int
}

// NewMemoryManager initializes an empty in-memory disk manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		pages:      make(map[page.PageID][]byte),
		WriteCount: make(map[page.PageID]int),
		ReadCount:  make(map[page.PageID]int),
	}
}

// ReadPage implements Manager. A page never written returns zero-filled
// bytes, matching a freshly allocated but not-yet-flushed page.
func (mm *MemoryManager) ReadPage(id page.PageID, dst []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.ReadCount[id]++
	stored, ok := mm.pages[id]
	if !ok {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	if n := copy(dst, stored); n != page.PageSize {
		return errors.Errorf("short read: got %d bytes, want %d", n, page.PageSize)
	}
	return nil
}

// WritePage implements Manager.
func (mm *MemoryManager) WritePage(id page.PageID, src []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.WriteCount[id]++
	buf := make([]byte, page.PageSize)
	if n := copy(buf, src); n != page.PageSize {
		return errors.Errorf("short write: wrote %d bytes, want %d", n, page.PageSize)
	}
	mm.pages[id] = buf
	return nil
}

// DeallocatePage implements Manager. MemoryManager retains the bytes (the
// core never recycles page ids), it only forgets nothing — deallocation is
// purely advisory here.
func (mm *MemoryManager) DeallocatePage(page.PageID) error {
	return nil
}
