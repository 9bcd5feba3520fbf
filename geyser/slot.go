package geyser

import "fmt"

// SlotStatus is the host's slot lifecycle state
type SlotStatus uint8

const (
	SlotProcessed SlotStatus = iota
	SlotRooted
	SlotConfirmed
	SlotFirstShredReceived
	SlotCompleted
	SlotCreatedBank
	SlotDead
)

var slotStatusNames = [...]string{
	SlotProcessed:          "processed",
	SlotRooted:             "rooted",
	SlotConfirmed:          "confirmed",
	SlotFirstShredReceived: "first_shred_received",
	SlotCompleted:          "completed",
	SlotCreatedBank:        "created_bank",
	SlotDead:               "dead",
}

func (s SlotStatus) String() string {
	if int(s) < len(slotStatusNames) {
		return slotStatusNames[s]
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Valid reports whether s is a known status
func (s SlotStatus) Valid() bool {
	return int(s) < len(slotStatusNames)
}

// ParseSlotStatus is the inverse of String
func ParseSlotStatus(name string) (SlotStatus, error) {
	for i, n := range slotStatusNames {
		if n == name {
			return SlotStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown slot status %q", name)
}

// AllSlotStatuses lists every known status in order
func AllSlotStatuses() []SlotStatus {
	out := make([]SlotStatus, len(slotStatusNames))
	for i := range slotStatusNames {
		out[i] = SlotStatus(i)
	}
	return out
}

// SlotUpdate is one slot status notification
type SlotUpdate struct {
	Slot   uint64
	Parent *uint64
	Status SlotStatus
	// DeadError is set when Status is SlotDead
	DeadError string
}
