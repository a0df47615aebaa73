package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketComponents = []byte("components")
	bucketActuators  = []byte("actuators")
	bucketBanks      = []byte("banks")
	bucketLoads      = []byte("loads")
	bucketSources    = []byte("sources")
	bucketActivities = []byte("activities")
	bucketActions    = []byte("actions")
	bucketCycles     = []byte("cycles")
	bucketState      = []byte("state")

	keyPowerState = "power"
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "odin.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketComponents,
			bucketActuators,
			bucketBanks,
			bucketLoads,
			bucketSources,
			bucketActivities,
			bucketActions,
			bucketCycles,
			bucketState,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping opens a read transaction and checks the buckets are present
func (s *BoltStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketComponents, bucketBanks, bucketActivities, bucketActions} {
			if tx.Bucket(b) == nil {
				return fmt.Errorf("bucket %s missing", b)
			}
		}
		return nil
	})
}

func (s *BoltStore) put(bucket []byte, key string, v any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// list decodes every value of a bucket in key order
func list[T any](s *BoltStore, bucket []byte) ([]*T, error) {
	var out []*T
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to decode %s/%s: %w", bucket, k, err)
			}
			out = append(out, &item)
			return nil
		})
	})
	return out, err
}

// Component operations
func (s *BoltStore) SaveComponent(c *thermal.Component) error {
	return s.put(bucketComponents, c.ID, c)
}

func (s *BoltStore) ListComponents() ([]*thermal.Component, error) {
	return list[thermal.Component](s, bucketComponents)
}

// Actuator operations
func (s *BoltStore) SaveActuator(a *thermal.Actuator) error {
	return s.put(bucketActuators, a.ID, a)
}

func (s *BoltStore) ListActuators() ([]*thermal.Actuator, error) {
	return list[thermal.Actuator](s, bucketActuators)
}

// Bank operations
func (s *BoltStore) SaveBank(b *power.Bank) error {
	return s.put(bucketBanks, b.ID, b)
}

func (s *BoltStore) ListBanks() ([]*power.Bank, error) {
	return list[power.Bank](s, bucketBanks)
}

// Load operations
func (s *BoltStore) SaveLoad(l *power.Load) error {
	return s.put(bucketLoads, l.ID, l)
}

func (s *BoltStore) ListLoads() ([]*power.Load, error) {
	return list[power.Load](s, bucketLoads)
}

// Source operations
func (s *BoltStore) SaveSource(src *power.Source) error {
	return s.put(bucketSources, src.ID, src)
}

func (s *BoltStore) ListSources() ([]*power.Source, error) {
	return list[power.Source](s, bucketSources)
}

// Power manager state
func (s *BoltStore) SavePowerState(st power.ManagerState) error {
	return s.put(bucketState, keyPowerState, st)
}

// GetPowerState returns ErrNotFound until state has been saved once
func (s *BoltStore) GetPowerState() (*power.ManagerState, error) {
	var st power.ManagerState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketState).Get([]byte(keyPowerState))
		if data == nil {
			return fmt.Errorf("power state %w", ErrNotFound)
		}
		return json.Unmarshal(data, &st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Activity operations
func (s *BoltStore) SaveActivity(a *mission.Activity) error {
	return s.put(bucketActivities, a.ID, a)
}

func (s *BoltStore) GetActivity(id string) (*mission.Activity, error) {
	var a mission.Activity
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketActivities).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("activity %w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *BoltStore) ListActivities() ([]*mission.Activity, error) {
	return list[mission.Activity](s, bucketActivities)
}

func (s *BoltStore) DeleteActivity(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketActivities).Delete([]byte(id))
	})
}

// AppendAction writes an action under the bucket's next sequence number so
// iteration order matches execution order
func (s *BoltStore) AppendAction(action types.Action) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(action)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// ListActions returns the most recent limit actions, oldest first. A
// non-positive limit returns all of them.
func (s *BoltStore) ListActions(limit int) ([]types.Action, error) {
	var out []types.Action
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketActions).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) == limit {
				break
			}
			var a types.Action
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("failed to decode action %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, a)
		}
		return nil
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, err
}

// AppendCycle records a completed charge cycle in a per-bank sub-bucket
func (s *BoltStore) AppendCycle(bankID string, rec power.CycleRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketCycles).CreateBucketIfNotExists([]byte(bankID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

func (s *BoltStore) ListCycles(bankID string) ([]power.CycleRecord, error) {
	var out []power.CycleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCycles).Bucket([]byte(bankID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec power.CycleRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
