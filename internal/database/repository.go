package database

import "time"

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByUsername(username string) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts(excludeId int) ([]User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	UpdateAccountPassword(accountId int, passwordHash string) error
	UpdateAccountStatus(accountId int, status string, lastSeen time.Time) error
	UpdateProfilePicture(accountId int, filename string) (User, error)
	DeleteAccount(accountId int) error
	CreateMessage(params CreateMessageParams) (Message, error)
	// GetConversation returns the history without acknowledging it;
	// MarkConversationRead acknowledges without returning it. The HTTP
	// history handler uses GetConversationAndMarkRead, which runs both
	// in one transaction.
	GetConversation(userA, userB int) ([]Message, error)
	MarkConversationRead(viewerId, otherId int) error
	GetConversationAndMarkRead(viewerId, otherId int) ([]Message, error)
}
