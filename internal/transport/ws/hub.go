package ws

import (
	"sync"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/transport/dto"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	ParticipantID() string
	RoomCode() string
}

// Hub fans room events out to the connections of that room. It implements
// service.Notifier.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // code -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.RoomCode()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[c.RoomCode()] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.RoomCode()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.RoomCode())
		}
	}
}

func (h *Hub) Count(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

func (h *Hub) Broadcast(code string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[code] {
		_ = c.Send(msg) // медленный клиент сам закрывается в Send
	}
}

func (h *Hub) RoomChanged(code string, snap domain.Snapshot) {
	if h.Count(code) == 0 {
		return
	}
	h.Broadcast(code, Message{Type: TypeState, Payload: dto.FromSnapshot(snap)})
}

// RoomClosed notifies and drops every connection of the room.
func (h *Hub) RoomClosed(code string) {
	h.mu.Lock()
	rs := h.rooms[code]
	delete(h.rooms, code)
	h.mu.Unlock()

	for c := range rs {
		_ = c.Send(Message{Type: TypeRoomClosed, Payload: RoomClosedPayload{Code: code}})
		_ = c.Close()
	}
}

// ParticipantLeft drops the connections of a participant who is no longer in
// the room, before the room's next state goes out.
func (h *Hub) ParticipantLeft(code, participantID string) {
	var gone []Conn
	h.mu.Lock()
	if rs, ok := h.rooms[code]; ok {
		for c := range rs {
			if c.ParticipantID() == participantID {
				gone = append(gone, c)
				delete(rs, c)
			}
		}
		if len(rs) == 0 {
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()

	for _, c := range gone {
		_ = c.Send(Message{Type: TypeLeft, Payload: LeftPayload{Code: code, ParticipantID: participantID}})
		_ = c.Close()
	}
}

// CloseAll drops every connection; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[Conn]struct{})
	h.mu.Unlock()

	for _, rs := range rooms {
		for c := range rs {
			_ = c.Close()
		}
	}
}
