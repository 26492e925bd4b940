package store

import (
	"sync"

	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

// MemoryStore is a Store kept entirely in memory.
type MemoryStore struct {
	mu sync.RWMutex

	blocks         []*l2.Block // blocks[i] has number i+1
	unverifiedData map[uint64]*l2.UnverifiedData
	latestUD       uint64
	cursors        map[CursorID]uint64
	closed         bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		unverifiedData: make(map[uint64]*l2.UnverifiedData),
		cursors:        make(map[CursorID]uint64),
	}
}

func (s *MemoryStore) AppendBlock(block *l2.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := checkAppend(uint64(len(s.blocks)), block); err != nil {
		return err
	}
	s.blocks = append(s.blocks, block)
	return nil
}

func (s *MemoryStore) PutUnverifiedData(data *l2.UnverifiedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.unverifiedData[data.BlockNumber] = data
	if data.BlockNumber > s.latestUD {
		s.latestUD = data.BlockNumber
	}
	return nil
}

func (s *MemoryStore) BlockHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.blocks))
}

func (s *MemoryStore) LatestUnverifiedDataBlockNum() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestUD
}

func (s *MemoryStore) GetBlock(num uint64) (*l2.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if num == 0 || num > uint64(len(s.blocks)) {
		return nil, ErrNotFound
	}
	return s.blocks[num-1], nil
}

func (s *MemoryStore) GetBlocks(from uint64, limit int) ([]*l2.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	first, last, ok, err := blockRange(uint64(len(s.blocks)), from, limit)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]*l2.Block, last-first+1)
	copy(out, s.blocks[first-1:last])
	return out, nil
}

func (s *MemoryStore) GetUnverifiedData(num uint64) (*l2.UnverifiedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.unverifiedData[num]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) Cursor(id CursorID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next, ok := s.cursors[id]
	if !ok {
		return 0, ErrNotFound
	}
	return next, nil
}

func (s *MemoryStore) SetCursor(id CursorID, next uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cursors[id] = next
	return nil
}

// Close marks the store as closed. Reads keep returning the last known state.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
