package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dmchat/internal/database"
)

func TestWireTimeFormat(t *testing.T) {
	ts := time.Date(2024, 5, 17, 9, 30, 45, 123456789, time.UTC)

	data, err := json.Marshal(WireTime(ts))
	assert.NoError(t, err, "expected no error marshalling wire time")
	assert.Equal(t, `"2024-05-17 09:30:45"`, string(data), "expected second-precision UTC timestamp")

	var parsed WireTime
	err = json.Unmarshal(data, &parsed)
	assert.NoError(t, err, "expected no error unmarshalling wire time")
	assert.Equal(t, ts.Truncate(time.Second), parsed.Time(), "expected round-trip to second precision")
}

func TestWireTimeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 5, 17, 11, 30, 45, 0, loc)

	data, err := json.Marshal(WireTime(ts))
	assert.NoError(t, err, "expected no error marshalling wire time")
	assert.Equal(t, `"2024-05-17 09:30:45"`, string(data), "expected timestamp converted to UTC")
}

func TestNewMessageEvent(t *testing.T) {
	created := time.Date(2024, 5, 17, 9, 30, 45, 0, time.UTC)
	msg := database.Message{
		Id:          7,
		SenderId:    1,
		RecipientId: 2,
		Body:        sql.NullString{String: "hi", Valid: true},
		CreatedAt:   created,
	}

	ev := NewMessageEvent(msg, "alice")
	assert.NotNil(t, ev.NewMessage, "expected a new_message event")
	assert.Equal(t, 7, ev.NewMessage.Id, "expected message id to carry over")
	assert.Equal(t, "alice", ev.NewMessage.SenderName, "expected sender name to be set")
	assert.Equal(t, "hi", ev.NewMessage.Body, "expected body to carry over")
	assert.Empty(t, ev.NewMessage.AudioFile, "expected no audio file on a text message")
	assert.Equal(t, "new_message", ev.Kind(), "expected kind to be new_message")

	data, err := json.Marshal(ev)
	assert.NoError(t, err, "expected no error marshalling event")
	assert.Contains(t, string(data), `"timestamp":"2024-05-17 09:30:45"`, "expected wire timestamp format")
	assert.NotContains(t, string(data), "audio_file", "expected empty audio file to be omitted")
}

func TestUserStatusEvents(t *testing.T) {
	online := UserOnlineEvent(3)
	assert.Equal(t, "user_status", online.Kind(), "expected kind to be user_status")
	assert.Equal(t, "online", online.UserStatus.Status, "expected status online")
	assert.Nil(t, online.UserStatus.LastSeen, "expected no last seen on an online event")

	at := time.Date(2024, 5, 17, 9, 30, 45, 0, time.UTC)
	offline := UserOfflineEvent(3, at)
	assert.Equal(t, "offline", offline.UserStatus.Status, "expected status offline")
	assert.NotNil(t, offline.UserStatus.LastSeen, "expected last seen on an offline event")

	data, err := json.Marshal(offline)
	assert.NoError(t, err, "expected no error marshalling event")
	assert.Contains(t, string(data), `"last_seen":"2024-05-17 09:30:45"`, "expected wire last seen format")
}

func TestErrorEvents(t *testing.T) {
	tcases := []struct {
		name  string
		event *ServerEvent
		code  int
		error string
	}{
		{
			name:  "invalid event",
			event: ErrInvalidEvent(1),
			code:  http.StatusBadRequest,
			error: "invalid event format",
		},
		{
			name:  "recipient not found",
			event: ErrRecipientNotFound(1),
			code:  http.StatusNotFound,
			error: "recipient not found",
		},
		{
			name:  "internal error",
			event: ErrInternalError(1),
			code:  http.StatusInternalServerError,
			error: "internal server error",
		},
		{
			name:  "service unavailable",
			event: ErrServiceUnavailable(1),
			code:  http.StatusServiceUnavailable,
			error: "service unavailable",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotNil(t, tc.event.Response, "expected a response event")
			assert.Equal(t, 1, tc.event.Id, "expected event id to be echoed")
			assert.Equal(t, tc.code, tc.event.Response.ResponseCode, "expected response code to match")
			assert.Equal(t, tc.error, tc.event.Response.Error, "expected error message to match")
		})
	}
}

func TestErrInvalidEventWithoutId(t *testing.T) {
	ev := ErrInvalidEvent(0)
	assert.Equal(t, 0, ev.Id, "expected zero id to stay unset")
	assert.Equal(t, http.StatusBadRequest, ev.Response.ResponseCode, "expected bad request response code")
}
