// Package store persists circle states for the driver daemon: the latest
// state per circle plus an append-only history of every persisted state,
// keyed by state hash. Values are canonical encodings compressed with zstd.
package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"

	"CirclePool/internal/circle"
)

// Key layout: one keyspace per concern, the circle id always leading.
var (
	prefixLatest  = []byte("s:") // s:<circle_id>              latest state
	prefixHistory = []byte("h:") // h:<circle_id><state_hash>  every state ever persisted
)

// ErrNotFound is returned when a circle or historical state is absent.
var ErrNotFound = errors.New("circle state not found")

// Store is a pebble-backed state store. It assumes a single writer; all
// concurrency control belongs to the driver.
type Store struct {
	db  *pebble.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) a store at the given path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(16 << 20), // 16 MB cache
		MemTableSize: 8 << 20,                   // 8 MB memtable
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble:\n%w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd writer:\n%w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd reader:\n%w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the store.
func (st *Store) Close() error {
	st.dec.Close()
	if err := st.enc.Close(); err != nil {
		st.db.Close()
		return err
	}
	return st.db.Close()
}

// PutState persists the state as the latest for its circle and appends it
// to the circle's history under its state hash. Both writes commit in one
// synced batch: either the state is fully recorded or not at all.
func (st *Store) PutState(s *circle.CircleState) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}

	compressed := st.enc.EncodeAll(data, nil)
	hash := s.StateHash()

	batch := st.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(latestKey(s.CircleID), compressed, nil); err != nil {
		return err
	}
	if err := batch.Set(historyKey(s.CircleID, hash), compressed, nil); err != nil {
		return err
	}

	return batch.Commit(pebble.Sync)
}

// GetState returns the latest state of a circle.
func (st *Store) GetState(circleID [circle.CircleIDSize]byte) (*circle.CircleState, error) {
	return st.get(latestKey(circleID))
}

// GetHistorical returns a past state of a circle by its state hash.
func (st *Store) GetHistorical(circleID [circle.CircleIDSize]byte, stateHash [32]byte) (*circle.CircleState, error) {
	return st.get(historyKey(circleID, stateHash))
}

// ListCircles returns the ids of all circles with a latest state.
func (st *Store) ListCircles() ([][circle.CircleIDSize]byte, error) {
	iter, err := st.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixLatest,
		UpperBound: []byte("s;"), // first key after the "s:" keyspace
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids [][circle.CircleIDSize]byte
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixLatest)+circle.CircleIDSize {
			continue
		}

		var id [circle.CircleIDSize]byte
		copy(id[:], key[len(prefixLatest):])
		ids = append(ids, id)
	}

	return ids, iter.Error()
}

func (st *Store) get(key []byte) (*circle.CircleState, error) {
	value, closer, err := st.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	data, err := st.dec.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress state:\n%w", err)
	}

	return circle.Decode(data)
}

func latestKey(circleID [circle.CircleIDSize]byte) []byte {
	key := make([]byte, 0, len(prefixLatest)+len(circleID))
	key = append(key, prefixLatest...)
	return append(key, circleID[:]...)
}

func historyKey(circleID [circle.CircleIDSize]byte, stateHash [32]byte) []byte {
	key := make([]byte, 0, len(prefixHistory)+len(circleID)+len(stateHash))
	key = append(key, prefixHistory...)
	key = append(key, circleID[:]...)
	return append(key, stateHash[:]...)
}
