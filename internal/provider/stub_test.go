package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/swift-update-provider/internal/storage"
)

// stubSession serves objects from memory after returning queued failures.
type stubSession struct {
	// objects maps storage keys to contents.
	objects map[string][]byte
	// failures are returned, in order, before any object is served.
	failures []error

	mu        sync.Mutex
	calls     []string
	callTimes []time.Time
}

// Download records the call and replays the next failure or the stored object.
func (s *stubSession) Download(_ context.Context, container, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, container+"/"+key)
	s.callTimes = append(s.callTimes, time.Now())

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]

		return nil, err
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", container, key, storage.ErrObjectNotFound)
	}

	return data, nil
}

// callCount returns how many downloads were attempted.
func (s *stubSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

// refused returns n classified connection-refused errors.
func refused(n int) []error {
	result := make([]error, n)
	for i := range result {
		result[i] = fmt.Errorf("dial storage: %w", storage.ErrConnectionRefused)
	}

	return result
}
