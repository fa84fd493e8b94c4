package domain

import "time"

// KeysetCursor points at the last row of a page ordered by (At DESC, ID DESC).
type KeysetCursor struct {
	At time.Time
	ID string
}
