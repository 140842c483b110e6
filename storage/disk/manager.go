/*
Package disk defines the block-device abstraction the buffer pool manager
instance consumes. The core never interprets page bytes and never retries a
failed operation; errors propagate unchanged to the caller, per the buffer
pool's error handling design.
*/
package disk

import "github.com/Garen-Wang/bustub/storage/page"

// Manager is the disk manager collaborator the buffer pool manager instance
// is constructed against. ReadPage/WritePage are blocking, single-page
// operations; DeallocatePage is the hook DeletePage calls once a page is no
// longer resident, and may no-op.
type Manager interface {
	// ReadPage fills dst (len(dst) == page.PageSize) with the on-disk bytes
	// of id.
	ReadPage(id page.PageID, dst []byte) error
	// WritePage persists src (len(src) == page.PageSize) as the bytes of id.
	WritePage(id page.PageID, src []byte) error
	// DeallocatePage notifies the disk manager that id is no longer in use.
	// A disk manager that does not reclaim space may no-op.
	DeallocatePage(id page.PageID) error
}
