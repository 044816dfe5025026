package daemon

import (
	"github.com/denisbrodbeck/machineid"
)

const fallbackBoardID = "hub"

// MachineID derives a board ID from the ID of the host machine.
func MachineID() string {
	id, err := machineid.ProtectedID("hubd")
	if err != nil || len(id) < 12 {
		return fallbackBoardID
	}
	return id[:12]
}
