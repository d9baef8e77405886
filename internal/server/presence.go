package server

import "sync"

type roomMembers struct {
	mu        sync.Mutex
	usernames []string
}

// PresenceTracker keeps, per room, the ordered usernames that announced a join
// and have not yet left. A room stays tracked once seen, even when its list
// empties.
type PresenceTracker struct {
	mu    sync.RWMutex
	rooms map[string]*roomMembers
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		rooms: make(map[string]*roomMembers),
	}
}

func (p *PresenceTracker) members(roomId string, create bool) *roomMembers {
	p.mu.RLock()
	m, ok := p.rooms[roomId]
	p.mu.RUnlock()
	if ok || !create {
		return m
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok = p.rooms[roomId]; !ok {
		m = &roomMembers{usernames: []string{}}
		p.rooms[roomId] = m
	}

	return m
}

// Join appends username to the room's list and returns a snapshot of it.
// Duplicate joins are kept.
func (p *PresenceTracker) Join(roomId, username string) []string {
	m := p.members(roomId, true)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames = append(m.usernames, username)

	return snapshot(m.usernames)
}

// Leave removes the first occurrence of username from the room's list and
// returns a snapshot. Leaving an untracked room returns an empty list and does
// not start tracking it.
func (p *PresenceTracker) Leave(roomId, username string) []string {
	m := p.members(roomId, false)
	if m == nil {
		return []string{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.usernames {
		if u == username {
			m.usernames = append(m.usernames[:i], m.usernames[i+1:]...)
			break
		}
	}

	return snapshot(m.usernames)
}

// Members returns a snapshot of the room's list, empty if untracked.
func (p *PresenceTracker) Members(roomId string) []string {
	m := p.members(roomId, false)
	if m == nil {
		return []string{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.usernames)
}

// Rooms returns the ids of every tracked room, in no particular order.
func (p *PresenceTracker) Rooms() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.rooms))
	for id := range p.rooms {
		ids = append(ids, id)
	}

	return ids
}

func snapshot(usernames []string) []string {
	out := make([]string, len(usernames))
	copy(out, usernames)
	return out
}
