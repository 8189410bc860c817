package mergetree

import (
	"fmt"

	"github.com/google/uuid"
)

var (
	newUUID = randomUUID // Stubbed for mocking in mocks_test.go
)

// ClientID is the short identifier of a collaborating client, as used in segment stamps.
type ClientID int

// NonCollabClient authors content that was present before collaboration started.
const NonCollabClient ClientID = -2

func (c ClientID) String() string {
	if c == NonCollabClient {
		return "client#noncollab"
	}
	return fmt.Sprintf("client#%d", c)
}

// ClientTable maps long client IDs to the short IDs stamped on segments.
//
// Short IDs are handed out in order of arrival and never reused, so stamps stay valid
// for the lifetime of the table. The zero value is an empty table ready to use.
type ClientTable struct {
	longIDs  []uuid.UUID
	shortIDs map[uuid.UUID]ClientID
}

// Add returns the short ID of a client, registering it if it's new.
func (t *ClientTable) Add(id uuid.UUID) ClientID {
	if c, ok := t.shortIDs[id]; ok {
		return c
	}
	if t.shortIDs == nil {
		t.shortIDs = make(map[uuid.UUID]ClientID)
	}
	c := ClientID(len(t.longIDs))
	t.longIDs = append(t.longIDs, id)
	t.shortIDs[id] = c
	return c
}

// NewClient registers a client with a freshly generated long ID.
func (t *ClientTable) NewClient() (uuid.UUID, ClientID) {
	id := newUUID()
	return id, t.Add(id)
}

// Short returns the short ID of a registered client.
func (t *ClientTable) Short(id uuid.UUID) (ClientID, bool) {
	c, ok := t.shortIDs[id]
	return c, ok
}

// Long returns the long ID of a short client ID.
func (t *ClientTable) Long(c ClientID) (uuid.UUID, bool) {
	if c < 0 || int(c) >= len(t.longIDs) {
		return uuid.Nil, false
	}
	return t.longIDs[c], true
}

// Len returns the number of registered clients.
func (t *ClientTable) Len() int {
	return len(t.longIDs)
}

// Create a random UUIDv4.
func randomUUID() uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Sprintf("creating UUIDv4: %v", err))
	}
	return id
}
