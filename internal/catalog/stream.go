package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/starford/mediabridge/internal/checksum"
)

var errStreamClosed = errors.New("catalog: write to closed stream")

// outputStream writes a pending entry's bytes and records their size and
// checksum when closed.
type outputStream struct {
	f      *os.File
	w      io.Writer
	sum    *checksum.Writer
	record func(size int64, sum string) error

	mu     sync.Mutex
	closed bool
}

func newOutputStream(f *os.File, record func(int64, string) error) *outputStream {
	sum := checksum.NewWriter()
	return &outputStream{
		f:      f,
		w:      io.MultiWriter(f, sum),
		sum:    sum,
		record: record,
	}
}

func (s *outputStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStreamClosed
	}
	return s.w.Write(p)
}

// Close flushes the file to disk and records its metadata. Calling Close more
// than once is a no-op.
func (s *outputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("catalog: fsync: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("catalog: close stream: %w", err)
	}
	return s.record(s.sum.Size(), s.sum.Sum())
}
