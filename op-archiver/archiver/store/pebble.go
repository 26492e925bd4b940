package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

const (
	blockPrefix          byte = 'b'
	unverifiedDataPrefix byte = 'u'
	cursorPrefix         byte = 'c'
)

func blockKey(num uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{blockPrefix}, num)
}

func unverifiedDataKey(num uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{unverifiedDataPrefix}, num)
}

func cursorKey(id CursorID) []byte {
	return []byte{cursorPrefix, byte(id)}
}

// PebbleStore is a durable Store backed by a pebble database.
// The watermarks are derived from the keys on open and cached in memory afterwards.
type PebbleStore struct {
	// mu serializes writes, and guards the cached watermarks and the closed db.
	mu       sync.RWMutex
	db       *pebble.DB
	height   uint64
	latestUD uint64
}

var _ Store = (*PebbleStore)(nil)

// OpenPebbleStore opens (or creates) the store in dir.
// Options may be nil, and are mostly set in tests to use an in-memory filesystem.
func OpenPebbleStore(logger log.Logger, dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %q: %w", dir, err)
	}
	s := &PebbleStore{db: db}
	if s.height, err = s.lastKey(blockPrefix); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if s.latestUD, err = s.lastKey(unverifiedDataPrefix); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	logger.Info("Opened archive store", "dir", dir, "block_height", s.height, "latest_unverified_data", s.latestUD)
	return s, nil
}

// lastKey returns the number in the highest key with the given prefix, or 0 if there are none.
func (s *PebbleStore) lastKey(prefix byte) (uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefix},
		UpperBound: []byte{prefix + 1},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, iter.Error()
	}
	key := iter.Key()
	if len(key) != 9 {
		return 0, fmt.Errorf("corrupt key %x", key)
	}
	return binary.BigEndian.Uint64(key[1:]), nil
}

func (s *PebbleStore) AppendBlock(block *l2.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if err := checkAppend(s.height, block); err != nil {
		return err
	}
	if err := s.db.Set(blockKey(block.BlockNumber()), block.Encode(), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write block %d: %w", block.Number, err)
	}
	s.height = block.BlockNumber()
	return nil
}

func (s *PebbleStore) PutUnverifiedData(data *l2.UnverifiedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if err := s.db.Set(unverifiedDataKey(data.BlockNumber), encodeUnverifiedData(data), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write unverified data of block %d: %w", data.BlockNumber, err)
	}
	if data.BlockNumber > s.latestUD {
		s.latestUD = data.BlockNumber
	}
	return nil
}

func (s *PebbleStore) BlockHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

func (s *PebbleStore) LatestUnverifiedDataBlockNum() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestUD
}

// get copies the value of key out of the db.
func (s *PebbleStore) get(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return common.CopyBytes(val), nil
}

func (s *PebbleStore) GetBlock(num uint64) (*l2.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if num == 0 || num > s.height {
		return nil, ErrNotFound
	}
	val, err := s.get(blockKey(num))
	if err != nil {
		return nil, err
	}
	block, err := l2.DecodeBlock(val)
	if err != nil {
		return nil, fmt.Errorf("corrupt block %d: %w", num, err)
	}
	return block, nil
}

func (s *PebbleStore) GetBlocks(from uint64, limit int) ([]*l2.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	first, last, ok, err := blockRange(s.height, from, limit)
	if err != nil || !ok {
		return nil, err
	}
	if s.db == nil {
		return nil, ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: blockKey(first),
		UpperBound: blockKey(last + 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()
	out := make([]*l2.Block, 0, last-first+1)
	for iter.First(); iter.Valid(); iter.Next() {
		block, err := l2.DecodeBlock(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("corrupt block at key %x: %w", iter.Key(), err)
		}
		out = append(out, block)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PebbleStore) GetUnverifiedData(num uint64) (*l2.UnverifiedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, err := s.get(unverifiedDataKey(num))
	if err != nil {
		return nil, err
	}
	data, err := decodeUnverifiedData(num, val)
	if err != nil {
		return nil, fmt.Errorf("corrupt unverified data of block %d: %w", num, err)
	}
	return data, nil
}

func (s *PebbleStore) Cursor(id CursorID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, err := s.get(cursorKey(id))
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt %s cursor: %x", id, val)
	}
	return binary.BigEndian.Uint64(val), nil
}

func (s *PebbleStore) SetCursor(id CursorID, next uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Set(cursorKey(id), binary.BigEndian.AppendUint64(nil, next), pebble.Sync)
}

// Close closes the db. Watermarks keep returning the last known state, lookups fail with ErrClosed.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// encodeUnverifiedData lays out sender ‖ l1Block u64 ‖ count u32 ‖ (len u32 ‖ preimage)*.
func encodeUnverifiedData(data *l2.UnverifiedData) []byte {
	out := make([]byte, 0, common.AddressLength+8+4)
	out = append(out, data.Sender[:]...)
	out = binary.BigEndian.AppendUint64(out, data.L1BlockNumber)
	out = binary.BigEndian.AppendUint32(out, uint32(len(data.Preimages)))
	for _, p := range data.Preimages {
		out = binary.BigEndian.AppendUint32(out, uint32(len(p)))
		out = append(out, p...)
	}
	return out
}

func decodeUnverifiedData(num uint64, val []byte) (*l2.UnverifiedData, error) {
	const header = common.AddressLength + 8 + 4
	if len(val) < header {
		return nil, fmt.Errorf("value of %d bytes is shorter than header", len(val))
	}
	data := &l2.UnverifiedData{
		BlockNumber:   num,
		Sender:        common.BytesToAddress(val[:common.AddressLength]),
		L1BlockNumber: binary.BigEndian.Uint64(val[common.AddressLength:]),
	}
	count := binary.BigEndian.Uint32(val[common.AddressLength+8:])
	rest := val[header:]
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("missing length of preimage %d", i)
		}
		size := binary.BigEndian.Uint32(rest)
		rest = rest[4:]
		if uint64(size) > uint64(len(rest)) {
			return nil, fmt.Errorf("preimage %d of %d bytes exceeds value", i, size)
		}
		data.Preimages = append(data.Preimages, rest[:size:size])
		rest = rest[size:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(rest))
	}
	return data, nil
}
