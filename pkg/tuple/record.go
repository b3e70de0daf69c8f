package tuple

import (
	"fmt"

	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
)

// RecordID is the physical address of a stored tuple: a page and a slot
// within it.
type RecordID struct {
	PageID page.ID
	Slot   primitives.SlotID
}

// NewRecordID creates a new RecordID
func NewRecordID(pageID page.ID, slot primitives.SlotID) *RecordID {
	return &RecordID{
		PageID: pageID,
		Slot:   slot,
	}
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if rid == nil || other == nil {
		return rid == other
	}
	return rid.PageID == other.PageID && rid.Slot == other.Slot
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, slot=%d)", rid.PageID, rid.Slot)
}
