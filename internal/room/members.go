package room

import (
	"slices"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type members struct {
	list   []*domain.Participant // порядок входа
	byID   map[string]*domain.Participant
	hostID string
}

func newMembers() members {
	return members{byID: make(map[string]*domain.Participant)}
}

func (m *members) get(id string) (*domain.Participant, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// add registers p; the first member of an empty room becomes host.
func (m *members) add(p *domain.Participant) {
	if len(m.list) == 0 {
		m.hostID = p.ID
	}
	p.IsHost = p.ID == m.hostID
	m.list = append(m.list, p)
	m.byID[p.ID] = p
}

// remove drops the participant and, if it was the host, hands the role to the
// earliest-joined remaining member. Returns the new host id when it changed.
func (m *members) remove(id string) (newHost string) {
	if _, ok := m.byID[id]; !ok {
		return ""
	}
	delete(m.byID, id)
	m.list = slices.DeleteFunc(m.list, func(p *domain.Participant) bool { return p.ID == id })

	if m.hostID != id {
		return ""
	}
	m.hostID = ""
	if len(m.list) == 0 {
		return ""
	}
	m.setHost(m.list[0].ID)
	return m.hostID
}

func (m *members) setHost(id string) {
	for _, p := range m.list {
		p.IsHost = p.ID == id
	}
	m.hostID = id
}

func (m *members) isHost(id string) bool {
	return id != "" && m.hostID == id
}

func (m *members) len() int { return len(m.list) }

func (m *members) snapshot() []domain.Participant {
	out := make([]domain.Participant, 0, len(m.list))
	for _, p := range m.list {
		out = append(out, *p)
	}
	return out
}

func (m *members) idleSince(cutoff time.Time) []string {
	var ids []string
	for _, p := range m.list {
		if p.LastSeen.Before(cutoff) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
