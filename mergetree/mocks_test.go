package mergetree

import (
	"github.com/google/uuid"
)

// Mock UUID generation for testing. Returns a function to undo the mocking.
func MockUUIDs(uuids ...uuid.UUID) func() {
	var i int
	oldNewUUID := newUUID
	undo := func() { newUUID = oldNewUUID }
	newUUID = func() uuid.UUID {
		id := uuids[i]
		i++
		return id
	}
	return undo
}
