package database

import (
	"database/sql"
	"fmt"
	"time"
)

const userColumns = "id, username, email, password_hash, profile_picture, status, last_seen, created_at, updated_at"

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	var u User
	err := db.conn.QueryRowx(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING "+userColumns,
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	).StructScan(&u)

	return u, err
}

func (db *PgRepository) GetAccountById(accountId int) (User, error) {
	var u User
	err := db.conn.Get(&u,
		"SELECT "+userColumns+" FROM accounts WHERE id = $1 LIMIT 1", accountId)
	return u, err
}

func (db *PgRepository) GetAccountByUsername(username string) (User, error) {
	var u User
	err := db.conn.Get(&u,
		"SELECT "+userColumns+" FROM accounts WHERE username = $1 LIMIT 1", username)
	return u, err
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	var u User
	err := db.conn.Get(&u,
		"SELECT "+userColumns+" FROM accounts WHERE email = $1 LIMIT 1", email)
	return u, err
}

func (db *PgRepository) ListAccounts(excludeId int) ([]User, error) {
	var users []User
	err := db.conn.Select(&users,
		"SELECT "+userColumns+" FROM accounts WHERE id <> $1 ORDER BY username ASC", excludeId)
	return users, err
}

func (db *PgRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	var u User
	err := db.conn.QueryRowx(
		"UPDATE accounts SET username = $2, email = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING "+userColumns,
		params.UserId,
		params.Username,
		params.EmailAddress,
		time.Now().UTC(),
	).StructScan(&u)

	return u, err
}

func (db *PgRepository) UpdateAccountPassword(accountId int, passwordHash string) error {
	res, err := db.conn.Exec(
		"UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1",
		accountId, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgRepository) UpdateAccountStatus(accountId int, status string, lastSeen time.Time) error {
	// last_seen only advances on the transition to offline
	res, err := db.conn.Exec(
		"UPDATE accounts SET status = $2, "+
			"last_seen = CASE WHEN $2 = 'offline' THEN $3 ELSE last_seen END, "+
			"updated_at = $3 WHERE id = $1",
		accountId, status, lastSeen.UTC())
	if err != nil {
		return err
	}

	return requireRowsAffected(res)
}

func (db *PgRepository) UpdateProfilePicture(accountId int, filename string) (User, error) {
	var u User
	err := db.conn.QueryRowx(
		"UPDATE accounts SET profile_picture = $2, updated_at = $3 "+
			"WHERE id = $1 RETURNING "+userColumns,
		accountId, filename, time.Now().UTC(),
	).StructScan(&u)

	return u, err
}

func (db *PgRepository) DeleteAccount(accountId int) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		"DELETE FROM messages WHERE sender_id = $1 OR recipient_id = $1", accountId); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	var res sql.Result
	if res, err = tx.Exec("DELETE FROM accounts WHERE id = $1", accountId); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err = requireRowsAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	var m Message
	err := db.conn.QueryRowx(
		"INSERT INTO messages (sender_id, recipient_id, body, audio_file, created_at) "+
			"VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5) "+
			"RETURNING id, sender_id, recipient_id, body, audio_file, created_at, is_read",
		params.SenderId,
		params.RecipientId,
		params.Body,
		params.AudioFile,
		time.Now().UTC(),
	).StructScan(&m)

	return m, err
}

const conversationQuery = "SELECT id, sender_id, recipient_id, body, audio_file, created_at, is_read " +
	"FROM messages " +
	"WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1) " +
	"ORDER BY created_at ASC, id ASC"

const markConversationReadQuery = "UPDATE messages SET is_read = TRUE " +
	"WHERE recipient_id = $1 AND sender_id = $2 AND is_read = FALSE"

func (db *PgRepository) GetConversation(userA, userB int) ([]Message, error) {
	var msgs []Message
	err := db.conn.Select(&msgs, conversationQuery, userA, userB)
	return msgs, err
}

// GetConversationAndMarkRead returns the conversation between the viewer
// and the other user, flipping is_read on every message addressed to the
// viewer in the same transaction. Viewing history acknowledges receipt.
func (db *PgRepository) GetConversationAndMarkRead(viewerId, otherId int) ([]Message, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msgs []Message
	if err = tx.Select(&msgs, conversationQuery, viewerId, otherId); err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}

	if _, err = tx.Exec(markConversationReadQuery, viewerId, otherId); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// reflect the flip in the returned set
	for i := range msgs {
		if msgs[i].RecipientId == viewerId {
			msgs[i].IsRead = true
		}
	}

	return msgs, nil
}

// MarkConversationRead flips is_read on every message addressed to the
// viewer from the other user. Idempotent, no-op when nothing is unread.
func (db *PgRepository) MarkConversationRead(viewerId, otherId int) error {
	_, err := db.conn.Exec(markConversationReadQuery, viewerId, otherId)
	return err
}

func requireRowsAffected(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sql.ErrNoRows
	}
	return nil
}
