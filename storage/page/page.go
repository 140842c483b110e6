/*
Package page defines the unit of I/O the buffer pool moves between disk and
memory.

A page is an opaque, fixed-size block of bytes identified by a PageID. The
buffer pool never interprets the bytes; only the optional LSN extraction hook
(see LSNFromPage) peeks into them, and only for WAL flush ordering.
*/
package page

// PageSize is the fixed byte size of a page and therefore of a buffer frame.
// 4096 matches a typical OS page and the size a disk manager reads/writes in
// one shot.
const PageSize = 4096

// PageID identifies a page within one buffer pool instance's page space.
// Signed so InvalidPageID can be represented without a separate "ok" flag.
type PageID int64

const (
	// InvalidPageID is the sentinel page id meaning "no page".
	InvalidPageID PageID = -1
)

// New returns a zero-filled page-sized buffer.
func New() []byte {
	return make([]byte, PageSize)
}

// LSNFromPage extracts a log sequence number from raw page bytes so the
// buffer pool can decide whether the WAL must be flushed before the page is
// written out. Callers that don't maintain an LSN in their page layout
// should leave this hook unset on buffer.Config.
type LSNFromPage func(data []byte) uint64
