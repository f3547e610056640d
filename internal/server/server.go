package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"dmchat/internal/database"
	"dmchat/internal/events"
	"dmchat/internal/presence"
	"dmchat/internal/stats"
)

// ErrUnknownRecipient is returned when a message references a user that
// does not exist.
var ErrUnknownRecipient = errors.New("unknown recipient")

// ChatServer owns the lifecycle of live connections: it binds them to
// rooms, counts connections per user so presence transitions fire only
// on the first open and the last close, and dispatches protocol events
// between the transport and the store.
type ChatServer struct {
	log      *log.Logger
	db       database.Repository
	router   *Router
	presence *presence.Registry
	stats    stats.StatsProvider
	events   events.Publisher

	mu        sync.Mutex
	clients   map[*Client]struct{}
	userConns map[int]map[*Client]struct{}

	// transitionMu serializes online/offline transitions. A transition
	// re-checks the connection count under mu before writing, so a
	// disconnect that lost the race with a reconnect publishes nothing.
	transitionMu sync.Mutex
}

func NewChatServer(logger *log.Logger, db database.Repository, reg *presence.Registry, sp stats.StatsProvider, pub events.Publisher) (*ChatServer, error) {
	if pub == nil {
		pub = events.NopPublisher{}
	}

	return &ChatServer{
		log:       logger,
		db:        db,
		router:    NewRouter(logger, sp),
		presence:  reg,
		stats:     sp,
		events:    pub,
		clients:   make(map[*Client]struct{}),
		userConns: make(map[int]map[*Client]struct{}),
	}, nil
}

// Presence exposes the registry backing this server.
func (cs *ChatServer) Presence() *presence.Registry {
	return cs.presence
}

// Register joins an authenticated connection into its user room and the
// broadcast room. The first connection for a user flips them online and
// announces it to every live connection.
func (cs *ChatServer) Register(c *Client) {
	cs.mu.Lock()
	cs.clients[c] = struct{}{}
	if cs.userConns[c.user.Id] == nil {
		cs.userConns[c.user.Id] = make(map[*Client]struct{})
	}
	cs.userConns[c.user.Id][c] = struct{}{}
	first := len(cs.userConns[c.user.Id]) == 1
	cs.mu.Unlock()

	cs.router.Join(UserRoom(c.user.Id), c)
	cs.router.Join(BroadcastRoom, c)
	cs.stats.ConnectionOpened()

	cs.log.Printf("connection %s opened for %q", c.id, c.user.Username)

	if first {
		cs.setUserOnline(c.user.Id)
	}

	cs.publishAudit(events.RouteConnect, "ws_connect", map[string]any{
		"conn_id": c.id,
		"user_id": c.user.Id,
	})
}

// Deregister removes a closed connection. The user's last connection
// flips them offline with a last-seen timestamp and announces it.
func (cs *ChatServer) Deregister(c *Client) {
	cs.mu.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.mu.Unlock()
		return
	}
	delete(cs.clients, c)
	if userClients, ok := cs.userConns[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(cs.userConns, c.user.Id)
		}
	}
	last := cs.userConns[c.user.Id] == nil
	cs.mu.Unlock()

	cs.router.Leave(UserRoom(c.user.Id), c)
	cs.router.Leave(BroadcastRoom, c)
	cs.stats.ConnectionClosed()

	cs.log.Printf("connection %s closed for %q", c.id, c.user.Username)

	if last {
		cs.setUserOffline(c.user.Id)
	}

	cs.publishAudit(events.RouteDisconnect, "ws_disconnect", map[string]any{
		"conn_id": c.id,
		"user_id": c.user.Id,
	})
}

// setUserOnline flips a user online and announces it. The flip is
// skipped when the user's connections are already gone or the registry
// already says online.
func (cs *ChatServer) setUserOnline(userId int) {
	cs.transitionMu.Lock()
	defer cs.transitionMu.Unlock()

	cs.mu.Lock()
	live := len(cs.userConns[userId]) > 0
	cs.mu.Unlock()

	if !live || cs.presence.Get(userId).Status == presence.StatusOnline {
		return
	}

	cs.presence.SetOnline(userId)
	if err := cs.db.UpdateAccountStatus(userId, database.StatusOnline, Now()); err != nil {
		cs.log.Println("persist online status:", err)
	}
	cs.router.Publish(BroadcastRoom, UserOnlineEvent(userId))
}

// setUserOffline flips a user offline with a last-seen timestamp. The
// flip is skipped when a connection re-registered in the meantime, so a
// stale disconnect cannot mark a live user offline.
func (cs *ChatServer) setUserOffline(userId int) {
	cs.transitionMu.Lock()
	defer cs.transitionMu.Unlock()

	cs.mu.Lock()
	live := len(cs.userConns[userId]) > 0
	cs.mu.Unlock()

	if live || cs.presence.Get(userId).Status == presence.StatusOffline {
		return
	}

	at := Now()
	cs.presence.SetOffline(userId, at)
	if err := cs.db.UpdateAccountStatus(userId, database.StatusOffline, at); err != nil {
		cs.log.Println("persist offline status:", err)
	}
	cs.router.Publish(BroadcastRoom, UserOfflineEvent(userId, at))
}

func (cs *ChatServer) handleSendMessage(c *Client, ev *ClientEvent) {
	body := strings.TrimSpace(ev.SendMessage.Message)
	if ev.SendMessage.RecipientId == 0 || body == "" {
		c.queueMessage(ErrInvalidEvent(ev.Id))
		return
	}

	recipient, err := cs.db.GetAccountById(ev.SendMessage.RecipientId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrRecipientNotFound(ev.Id))
		} else {
			cs.log.Println("lookup recipient:", err)
			c.queueMessage(ErrInternalError(ev.Id))
		}
		return
	}

	// persist before any fan-out so a store failure publishes nothing
	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		SenderId:    c.user.Id,
		RecipientId: recipient.Id,
		Body:        body,
	})
	if err != nil {
		cs.log.Println("create message:", err)
		c.queueMessage(ErrInternalError(ev.Id))
		return
	}
	cs.stats.MessageStored("text")

	delivery := NewMessageEvent(msg, c.user.Username)
	cs.router.Publish(UserRoom(recipient.Id), delivery)
	if recipient.Id != c.user.Id {
		// echo so the sender's other connections see the sent message
		cs.router.Publish(UserRoom(c.user.Id), delivery)
	}

	cs.publishAudit(events.RouteMessage, "message_sent", map[string]any{
		"message_id":   msg.Id,
		"sender_id":    msg.SenderId,
		"recipient_id": msg.RecipientId,
		"kind":         "text",
	})
}

func (cs *ChatServer) handleTyping(c *Client, ev *ClientEvent) {
	if ev.Typing.RecipientId == 0 {
		c.queueMessage(ErrInvalidEvent(ev.Id))
		return
	}

	cs.router.Publish(UserRoom(ev.Typing.RecipientId), &ServerEvent{
		UserTyping: &UserTyping{
			UserId:   c.user.Id,
			Username: c.user.Username,
		},
	})
}

func (cs *ChatServer) handleStopTyping(c *Client, ev *ClientEvent) {
	if ev.StopTyping.RecipientId == 0 {
		c.queueMessage(ErrInvalidEvent(ev.Id))
		return
	}

	cs.router.Publish(UserRoom(ev.StopTyping.RecipientId), &ServerEvent{
		UserStopTyping: &UserStopTyping{
			UserId: c.user.Id,
		},
	})
}

// SendAudioMessage persists a voice-note message and delivers it to the
// recipient's room only. The sender gets no echo on this path; their
// upload response already carries the stored filename.
func (cs *ChatServer) SendAudioMessage(sender database.User, recipientId int, filename string) (database.Message, error) {
	recipient, err := cs.db.GetAccountById(recipientId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Message{}, ErrUnknownRecipient
		}
		return database.Message{}, err
	}

	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		SenderId:    sender.Id,
		RecipientId: recipient.Id,
		AudioFile:   filename,
	})
	if err != nil {
		return database.Message{}, err
	}
	cs.stats.MessageStored("audio")

	cs.router.Publish(UserRoom(recipient.Id), NewMessageEvent(msg, sender.Username))

	cs.publishAudit(events.RouteMessage, "message_sent", map[string]any{
		"message_id":   msg.Id,
		"sender_id":    msg.SenderId,
		"recipient_id": msg.RecipientId,
		"kind":         "audio",
	})

	return msg, nil
}

func (cs *ChatServer) publishAudit(routingKey, name string, payload map[string]any) {
	err := cs.events.Publish(context.Background(), routingKey, events.Envelope{
		EventName:  name,
		OccurredAt: Now(),
		Payload:    payload,
	})
	if err != nil {
		cs.log.Printf("publish audit event %s: %v", name, err)
	}
}

// Shutdown stops every live connection and waits for their read pumps
// to deregister, or returns the context error.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.mu.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.mu.Unlock()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		cs.mu.Lock()
		remaining := len(cs.clients)
		cs.mu.Unlock()
		if remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
