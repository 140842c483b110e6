package disk

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Garen-Wang/bustub/storage/page"
)

// growChunkPages is the number of pages the backing file is extended by
// whenever a write targets a page beyond the current mapping. Growing in
// chunks instead of one page at a time amortizes the munmap/Truncate/mmap
// cycle across many allocations.
const growChunkPages = 256

// FileManager is a disk manager backed by a single memory-mapped file.
// Page id p occupies the byte range [p*PageSize, (p+1)*PageSize) of the
// file. It satisfies Manager.
type FileManager struct {
	mu   sync.Mutex
	file *os.File
	data []byte
	size int64
}

// NewFileManager opens (creating if necessary) path and maps it into memory.
func NewFileManager(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}

	fm := &FileManager{file: f}
	if err := fm.ensureMapped(int64(growChunkPages) * page.PageSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "ensureMapped failed")
	}
	return fm, nil
}

// ensureMapped grows and (re)maps the file so at least minSize bytes are
// addressable. The caller must hold fm.mu.
func (fm *FileManager) ensureMapped(minSize int64) error {
	if fm.size >= minSize {
		return nil
	}

	info, err := fm.file.Stat()
	if err != nil {
		return errors.Wrap(err, "Stat failed")
	}
	newSize := minSize
	if info.Size() > newSize {
		newSize = info.Size()
	}
	if err := fm.file.Truncate(newSize); err != nil {
		return errors.Wrap(err, "Truncate failed")
	}

	if fm.data != nil {
		if err := unix.Munmap(fm.data); err != nil {
			return errors.Wrap(err, "Munmap failed")
		}
		fm.data = nil
	}
	data, err := unix.Mmap(int(fm.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "Mmap failed")
	}
	fm.data = data
	fm.size = newSize
	return nil
}

func (fm *FileManager) offset(id page.PageID) int64 {
	return int64(id) * page.PageSize
}

// ReadPage implements Manager.
func (fm *FileManager) ReadPage(id page.PageID, dst []byte) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	off := fm.offset(id)
	if off+page.PageSize > fm.size {
		// Never-written page: the caller sees a zero-filled page, matching
		// a sparse file's semantics.
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	n := copy(dst, fm.data[off:off+page.PageSize])
	if n != page.PageSize {
		return errors.Errorf("short read: got %d bytes, want %d", n, page.PageSize)
	}
	return nil
}

// WritePage implements Manager.
func (fm *FileManager) WritePage(id page.PageID, src []byte) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	off := fm.offset(id)
	if off+page.PageSize > fm.size {
		growTo := off + int64(growChunkPages)*page.PageSize
		if err := fm.ensureMapped(growTo); err != nil {
			return errors.Wrap(err, "ensureMapped failed")
		}
	}
	n := copy(fm.data[off:off+page.PageSize], src)
	if n != page.PageSize {
		return errors.Errorf("short write: wrote %d bytes, want %d", n, page.PageSize)
	}
	return unix.Msync(fm.data, unix.MS_ASYNC)
}

// DeallocatePage implements Manager. FileManager never reclaims file space;
// a freed page id's bytes are simply left in place until reused (the buffer
// pool core never recycles page ids, so in practice they never are).
func (fm *FileManager) DeallocatePage(page.PageID) error {
	return nil
}

// Close unmaps and closes the backing file.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.data != nil {
		if err := unix.Munmap(fm.data); err != nil {
			return errors.Wrap(err, "Munmap failed")
		}
		fm.data = nil
	}
	return fm.file.Close()
}
