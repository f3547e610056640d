package server

import (
	"log"
	"strconv"
	"sync"

	"dmchat/internal/stats"
)

// BroadcastRoom is the room every live connection joins; presence
// changes are published here.
const BroadcastRoom = "broadcast"

// UserRoom names the private delivery room for a user. All of a user's
// simultaneous connections share it.
func UserRoom(userId int) string {
	return "user_" + strconv.Itoa(userId)
}

// Router maintains room membership and fans events out to every
// connection in a room. Rooms are lazily materialized connection sets;
// an empty room is simply absent.
type Router struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRouter(logger *log.Logger, sp stats.StatsProvider) *Router {
	return &Router{
		log:   logger,
		stats: sp,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (r *Router) Join(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[key] == nil {
		r.rooms[key] = make(map[*Client]struct{})
	}
	r.rooms[key][c] = struct{}{}
}

func (r *Router) Leave(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, key)
		}
	}
}

// Publish delivers the event to every connection currently in the room,
// at most once per member. Each client's send queue preserves the order
// in which events were published to it; a member whose queue is full
// misses the event rather than blocking the fan-out.
func (r *Router) Publish(key string, event *ServerEvent) {
	r.mu.RLock()
	members := make([]*Client, 0, len(r.rooms[key]))
	for c := range r.rooms[key] {
		members = append(members, c)
	}
	r.mu.RUnlock()

	for _, c := range members {
		if c.queueMessage(event) {
			r.stats.EventDelivered(event.Kind())
		} else {
			r.log.Printf("dropped %s event for %q in room %q: send queue full",
				event.Kind(), c.user.Username, key)
		}
	}
}

// RoomSize reports the number of connections currently in a room.
func (r *Router) RoomSize(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[key])
}
