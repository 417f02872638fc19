package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

var (
	articlesBucket   = []byte("articles")
	executionsBucket = []byte("executions")
	metaBucket       = []byte("meta")

	lastWeekKey  = []byte("last_week")
	updatedAtKey = []byte("updated_at")
	versionKey   = []byte("version")
)

// BoltStore keeps the snapshot in a bbolt file. Save runs in one
// transaction, so a crash leaves the previous state intact.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for bolt db: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(createBuckets)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func createBuckets(tx *bbolt.Tx) error {
	for _, bucket := range [][]byte{articlesBucket, executionsBucket, metaBucket} {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// executionKey sorts records by start time.
func executionKey(r domain.ExecutionRecord) []byte {
	return []byte(fmt.Sprintf("%020d-%s", r.StartedAt.UnixNano(), r.ID))
}

func (s *BoltStore) Load(_ context.Context) (*Snapshot, error) {
	snap := NewSnapshot()

	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if v := meta.Get(lastWeekKey); v != nil {
			week, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("failed to decode last week: %w", err)
			}
			snap.LastWeek = week
		}
		if v := meta.Get(updatedAtKey); v != nil {
			if err := snap.UpdatedAt.UnmarshalText(v); err != nil {
				return fmt.Errorf("failed to decode updated_at: %w", err)
			}
		}
		if v := meta.Get(versionKey); v != nil {
			if version, err := strconv.Atoi(string(v)); err == nil {
				snap.Version = version
			}
		}

		err := tx.Bucket(articlesBucket).ForEach(func(k, v []byte) error {
			var st domain.ArticleState
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("failed to unmarshal article %s: %w", k, err)
			}
			snap.Articles[string(k)] = st
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(executionsBucket).ForEach(func(k, v []byte) error {
			var rec domain.ExecutionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal execution %s: %w", k, err)
			}
			snap.Executions = append(snap.Executions, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *BoltStore) Save(_ context.Context, snap *Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(articlesBucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to clear articles: %w", err)
		}
		articles, err := tx.CreateBucket(articlesBucket)
		if err != nil {
			return fmt.Errorf("failed to create articles bucket: %w", err)
		}
		for code, st := range snap.Articles {
			data, err := json.Marshal(st)
			if err != nil {
				return fmt.Errorf("failed to marshal article %s: %w", code, err)
			}
			if err := articles.Put([]byte(code), data); err != nil {
				return err
			}
		}

		executions := tx.Bucket(executionsBucket)
		for _, rec := range snap.Executions {
			if err := putExecution(executions, rec); err != nil {
				return err
			}
		}

		meta := tx.Bucket(metaBucket)
		updatedAt, err := snap.UpdatedAt.MarshalText()
		if err != nil {
			return fmt.Errorf("failed to encode updated_at: %w", err)
		}
		if err := meta.Put(updatedAtKey, updatedAt); err != nil {
			return err
		}
		if err := meta.Put(versionKey, []byte(strconv.Itoa(SnapshotVersion))); err != nil {
			return err
		}
		return meta.Put(lastWeekKey, []byte(strconv.Itoa(snap.LastWeek)))
	})
}

func putExecution(bucket *bbolt.Bucket, rec domain.ExecutionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", rec.ID, err)
	}
	return bucket.Put(executionKey(rec), data)
}

func (s *BoltStore) AppendExecution(_ context.Context, record domain.ExecutionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putExecution(tx.Bucket(executionsBucket), record)
	})
}

func (s *BoltStore) Reset(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{articlesBucket, executionsBucket, metaBucket} {
			if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
			}
		}
		return createBuckets(tx)
	})
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
