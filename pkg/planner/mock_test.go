package planner

import "sync"

// mockLogger is a mock implementation of logger.Logger for testing
type mockLogger struct {
	mu         sync.Mutex
	warnCalls  []warnCall
	debugCalls []string
}

type warnCall struct {
	operation string
	path      string
	err       error
}

func (m *mockLogger) Copy(source, destination string) {}

func (m *mockLogger) Delete(path string) {}

func (m *mockLogger) Mkdir(path string) {}

func (m *mockLogger) Warn(operation, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnCalls = append(m.warnCalls, warnCall{operation, path, err})
}

func (m *mockLogger) Error(operation, path string, err error) {}

func (m *mockLogger) Debug(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugCalls = append(m.debugCalls, message)
}
