package protocol

import "fmt"

// Identity is what a node obtains from the PAN master.
type Identity struct {
	ShortAddress uint16 `json:"short_address" yaml:"short_address"`
	PANID        uint16 `json:"pan_id" yaml:"pan_id"`
	SlotID       uint16 `json:"slot_id" yaml:"slot_id"`
}

func (id Identity) String() string {
	return fmt.Sprintf("ID=%04X PANID=%04X slot=%d", id.ShortAddress, id.PANID, id.SlotID)
}

// IdentityOf extracts the allocation carried by a response frame.
func IdentityOf(f *Frame) Identity {
	return Identity{ShortAddress: f.ShortAddress, PANID: f.PANID, SlotID: f.SlotID}
}

// UUID formats a long address the way diagnostics print it.
func UUID(longAddress uint64) string { return fmt.Sprintf("%X", longAddress) }
