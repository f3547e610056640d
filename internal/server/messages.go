package server

import (
	"net/http"
	"strings"
	"time"

	"dmchat/internal/database"
)

// wireTimeLayout is the textual timestamp format used on the wire:
// second precision, UTC.
const wireTimeLayout = "2006-01-02 15:04:05"

// WireTime marshals as "2006-01-02 15:04:05" in UTC.
type WireTime time.Time

func (t WireTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(wireTimeLayout) + `"`), nil
}

func (t *WireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := time.ParseInLocation(wireTimeLayout, s, time.UTC)
	if err != nil {
		return err
	}
	*t = WireTime(parsed)
	return nil
}

func (t WireTime) Time() time.Time {
	return time.Time(t)
}

func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ClientEvent is the inbound envelope. Exactly one event field is set.
// The sender identity is always taken from the authenticated connection,
// never from the payload.
type ClientEvent struct {
	Id          int          `json:"id,omitempty"`
	SendMessage *SendMessage `json:"send_message,omitempty"`
	Typing      *Typing      `json:"typing,omitempty"`
	StopTyping  *StopTyping  `json:"stop_typing,omitempty"`
}

type SendMessage struct {
	RecipientId int    `json:"recipient_id"`
	Message     string `json:"message"`
}

type Typing struct {
	RecipientId int `json:"recipient_id"`
}

type StopTyping struct {
	RecipientId int `json:"recipient_id"`
}

// ServerEvent is the outbound envelope. Exactly one event field is set.
type ServerEvent struct {
	Id             int             `json:"id,omitempty"`
	NewMessage     *NewMessage     `json:"new_message,omitempty"`
	UserStatus     *UserStatus     `json:"user_status,omitempty"`
	UserTyping     *UserTyping     `json:"user_typing,omitempty"`
	UserStopTyping *UserStopTyping `json:"user_stop_typing,omitempty"`
	Response       *Response       `json:"response,omitempty"`
}

type NewMessage struct {
	Id          int      `json:"id"`
	SenderId    int      `json:"sender_id"`
	SenderName  string   `json:"sender_name"`
	RecipientId int      `json:"recipient_id"`
	Body        string   `json:"body,omitempty"`
	AudioFile   string   `json:"audio_file,omitempty"`
	Timestamp   WireTime `json:"timestamp"`
}

type UserStatus struct {
	UserId   int       `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen *WireTime `json:"last_seen,omitempty"`
}

type UserTyping struct {
	UserId   int    `json:"user_id"`
	Username string `json:"username"`
}

type UserStopTyping struct {
	UserId int `json:"user_id"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

// Kind names the event for logs and stats.
func (e *ServerEvent) Kind() string {
	switch {
	case e.NewMessage != nil:
		return "new_message"
	case e.UserStatus != nil:
		return "user_status"
	case e.UserTyping != nil:
		return "user_typing"
	case e.UserStopTyping != nil:
		return "user_stop_typing"
	case e.Response != nil:
		return "response"
	default:
		return "unknown"
	}
}

func NewMessageEvent(msg database.Message, senderName string) *ServerEvent {
	return &ServerEvent{
		NewMessage: &NewMessage{
			Id:          msg.Id,
			SenderId:    msg.SenderId,
			SenderName:  senderName,
			RecipientId: msg.RecipientId,
			Body:        msg.Body.String,
			AudioFile:   msg.AudioFile.String,
			Timestamp:   WireTime(msg.CreatedAt),
		},
	}
}

func UserOnlineEvent(userId int) *ServerEvent {
	return &ServerEvent{
		UserStatus: &UserStatus{
			UserId: userId,
			Status: "online",
		},
	}
}

func UserOfflineEvent(userId int, lastSeen time.Time) *ServerEvent {
	at := WireTime(lastSeen)
	return &ServerEvent{
		UserStatus: &UserStatus{
			UserId:   userId,
			Status:   "offline",
			LastSeen: &at,
		},
	}
}

func ErrInvalidEvent(id int) *ServerEvent {
	msg := &ServerEvent{
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid event format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrRecipientNotFound(id int) *ServerEvent {
	return &ServerEvent{
		Id: id,
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "recipient not found",
		},
	}
}

func ErrInternalError(id int) *ServerEvent {
	return &ServerEvent{
		Id: id,
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerEvent {
	return &ServerEvent{
		Id: id,
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}
