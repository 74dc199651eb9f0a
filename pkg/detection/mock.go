package detection

import (
	"image"
	"sync"
)

// MockLocator implements Locator for testing.
type MockLocator struct {
	// LocateFunc is called when Locate is invoked. If nil, no face is found.
	LocateFunc func(img image.Image) (Face, bool, error)

	mu    sync.Mutex
	calls int
}

// Locate implements Locator.
func (m *MockLocator) Locate(img image.Image) (Face, bool, error) {
	m.mu.Lock()
	m.calls++
	fn := m.LocateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(img)
	}
	return Face{}, false, nil
}

// Close implements Locator.
func (m *MockLocator) Close() error { return nil }

// Calls returns how many images were located.
func (m *MockLocator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
