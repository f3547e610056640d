package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"dmchat/internal/database"
	"dmchat/internal/presence"
	"dmchat/internal/server"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// User is the outward account representation. Status and last seen are
// overlaid from the live presence registry.
type User struct {
	Id             int              `json:"id"`
	Username       string           `json:"username"`
	EmailAddress   string           `json:"email_address,omitempty"`
	ProfilePicture string           `json:"profile_picture,omitempty"`
	Status         string           `json:"status"`
	LastSeen       *server.WireTime `json:"last_seen,omitempty"`
	CreatedAt      time.Time        `json:"created_at,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at,omitempty"`
}

type Message struct {
	Id          int             `json:"id"`
	SenderId    int             `json:"sender_id"`
	RecipientId int             `json:"recipient_id"`
	Body        string          `json:"body,omitempty"`
	AudioFile   string          `json:"audio_file,omitempty"`
	Timestamp   server.WireTime `json:"timestamp"`
	IsRead      bool            `json:"is_read"`
}

func (a *App) userView(u database.User) User {
	entry := a.cs.Presence().Get(u.Id)

	view := User{
		Id:             u.Id,
		Username:       u.Username,
		EmailAddress:   u.EmailAddress,
		ProfilePicture: u.ProfilePicture,
		Status:         entry.Status,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}

	if entry.Status == presence.StatusOffline {
		lastSeen := entry.LastSeen
		if lastSeen.IsZero() {
			lastSeen = u.LastSeen
		}
		if !lastSeen.IsZero() {
			wt := server.WireTime(lastSeen)
			view.LastSeen = &wt
		}
	}

	return view
}

func messageView(m database.Message) Message {
	return Message{
		Id:          m.Id,
		SenderId:    m.SenderId,
		RecipientId: m.RecipientId,
		Body:        m.Body.String,
		AudioFile:   m.AudioFile.String,
		Timestamp:   server.WireTime(m.CreatedAt),
		IsRead:      m.IsRead,
	}
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := a.db.GetAccountByUsername(req.Username); err == nil {
		errResp := NewConflictError("username already exists")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := a.db.GetAccountByEmail(req.Email); err == nil {
		errResp := NewConflictError("email already exists")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := a.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.writeJson(w, http.StatusCreated, a.userView(newUser))
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Username == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := a.db.GetAccountByUsername(lr.Username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := a.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	a.writeJson(w, http.StatusOK, a.userView(dbUser))
}

func (a *App) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := a.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.writeJson(w, http.StatusOK, a.userView(user))
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := a.db.UpdateAccountStatus(userId, database.StatusOffline, server.Now()); err != nil {
		a.log.Printf("persist offline status on logout: %v", err)
	}

	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := a.db.ListAccounts(userId)
	if err != nil {
		a.log.Println("list accounts:", err)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, a.userView(u))
	}

	a.writeJson(w, http.StatusOK, users)
}

func (a *App) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherIdStr := r.URL.Query().Get("user_id")
	if otherIdStr == "" {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherId, err := strconv.Atoi(otherIdStr)
	if err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := a.db.GetAccountById(otherId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// viewing a conversation marks messages addressed to the viewer read
	dbMessages, err := a.db.GetConversationAndMarkRead(userId, otherId)
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, messageView(m))
	}

	a.writeJson(w, http.StatusOK, messages)
}

func (a *App) account(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			a.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		a.writeJson(w, http.StatusOK, a.userView(user))
	case http.MethodPut:
		a.updateAccount(w, r, userId)
	case http.MethodDelete:
		a.deleteAccount(w, r, userId)
	default:
		errResp := NewMethodNotAllowedError()
		a.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (a *App) updateAccount(w http.ResponseWriter, r *http.Request, userId int) {
	curUser, err := a.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the multipart variant updates the profile picture alongside the
	// account fields
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		a.updateAccountMultipart(w, r, curUser)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, apiErr := a.applyAccountUpdate(curUser, req.Username, req.Email)
	if apiErr != nil {
		a.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	a.writeJson(w, http.StatusOK, a.userView(updated))
}

func (a *App) applyAccountUpdate(curUser database.User, username, email string) (database.User, *ApiError) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return database.User{}, NewBadRequestError()
	}

	if username != curUser.Username {
		if _, err := a.db.GetAccountByUsername(username); err == nil {
			return database.User{}, NewConflictError("username already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return database.User{}, NewInternalServerError(err)
		}
	}

	if email != curUser.EmailAddress {
		if _, err := a.db.GetAccountByEmail(email); err == nil {
			return database.User{}, NewConflictError("email already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return database.User{}, NewInternalServerError(err)
		}
	}

	updated, err := a.db.UpdateAccount(database.UpdateAccountParams{
		UserId:       curUser.Id,
		Username:     username,
		EmailAddress: email,
	})
	if err != nil {
		return database.User{}, NewInternalServerError(err)
	}

	return updated, nil
}

func (a *App) changePassword(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := a.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(user.PasswordHash, req.CurrentPassword) {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.NewPassword)
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := a.db.UpdateAccountPassword(userId, pwdHash); err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := a.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, a.cs, a.log)

	a.cs.Register(client)
	go client.Write()
	go client.Read()
}
