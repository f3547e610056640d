package stats

import "github.com/stretchr/testify/mock"

type MockStatsProvider struct {
	mock.Mock
}

func (m *MockStatsProvider) ConnectionOpened() {
	m.Called()
}
func (m *MockStatsProvider) ConnectionClosed() {
	m.Called()
}
func (m *MockStatsProvider) EventReceived(event string) {
	m.Called(event)
}
func (m *MockStatsProvider) EventDelivered(event string) {
	m.Called(event)
}
func (m *MockStatsProvider) MessageStored(kind string) {
	m.Called(kind)
}

// NopStatsProvider is a no-op implementation for tests that do not
// assert on metrics.
type NopStatsProvider struct{}

func (NopStatsProvider) ConnectionOpened()            {}
func (NopStatsProvider) ConnectionClosed()            {}
func (NopStatsProvider) EventReceived(event string)   {}
func (NopStatsProvider) EventDelivered(event string)  {}
func (NopStatsProvider) MessageStored(kind string)    {}
