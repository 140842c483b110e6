package buffer

import "github.com/Garen-Wang/bustub/storage/page"

// FrameID is the index of a frame within a Manager's frame array.
type FrameID int

// Frame is one fixed-size slot in the pool. Its identity (index within the
// Manager's frame array) is stable for the Manager's lifetime; the byte
// buffer is reused across many page ids over that lifetime.
type Frame struct {
	PageID   page.PageID
	PinCount int
	IsDirty  bool
	Data     []byte
}

// reset clears a frame back to the free-list state described by the free
// list invariants: PageID == InvalidPageID, PinCount == 0, IsDirty == false.
// The byte buffer itself is left as-is; it is overwritten on next use.
func (f *Frame) reset() {
	f.PageID = page.InvalidPageID
	f.PinCount = 0
	f.IsDirty = false
}

func newFrames(poolSize int) []Frame {
	frames := make([]Frame, poolSize)
	for i := range frames {
		frames[i].PageID = page.InvalidPageID
		frames[i].Data = page.New()
	}
	return frames
}
