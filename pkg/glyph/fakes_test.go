package glyph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

func testLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.Trace,
	})
}

// fakeRenderer draws "font:char" as the image. Characters listed in shared
// render identically in every font.
type fakeRenderer struct {
	format Format
	shared string
	delay  func(Request) time.Duration

	mu       sync.Mutex
	failures map[rune]int
	calls    map[rune]int
}

func (f *fakeRenderer) Format() Format {
	if f.format == "" {
		return FormatSVG
	}
	return f.format
}

func (f *fakeRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[rune]int{}
	}
	f.calls[req.Character]++
	fail := f.failures[req.Character] > 0
	if fail {
		f.failures[req.Character]--
	}
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(req)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("renderer exploded")
	}
	for _, r := range f.shared {
		if r == req.Character {
			return []byte(fmt.Sprintf("shared:%c", req.Character)), nil
		}
	}
	return []byte(fmt.Sprintf("%s%s:%c", req.Font.Family, req.Font.Path, req.Character)), nil
}

func (f *fakeRenderer) callCount(r rune) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[r]
}

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	puts  int
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}}
}

func (m *memStore) Put(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	m.puts++
	return nil
}
