package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) ListAccounts(excludeId int) ([]User, error) {
	args := m.Called(excludeId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccountPassword(accountId int, passwordHash string) error {
	args := m.Called(accountId, passwordHash)
	return args.Error(0)
}
func (m *MockRepository) UpdateAccountStatus(accountId int, status string, lastSeen time.Time) error {
	args := m.Called(accountId, status, lastSeen)
	return args.Error(0)
}
func (m *MockRepository) UpdateProfilePicture(accountId int, filename string) (User, error) {
	args := m.Called(accountId, filename)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) DeleteAccount(accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetConversation(userA, userB int) ([]Message, error) {
	args := m.Called(userA, userB)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) GetConversationAndMarkRead(viewerId, otherId int) ([]Message, error) {
	args := m.Called(viewerId, otherId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) MarkConversationRead(viewerId, otherId int) error {
	args := m.Called(viewerId, otherId)
	return args.Error(0)
}
