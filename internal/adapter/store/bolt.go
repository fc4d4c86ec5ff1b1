package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
)

var (
	bucketNamespaces = []byte("namespaces")
	bucketDimensions = []byte("dimensions")
)

// BoltStore is the file-backed vector store. Records live in one bucket
// per namespace; search is brute-force cosine over the full namespace.
// BoltDB's transactional writes give crash-safe write-replace semantics.
type BoltStore struct {
	db  *bbolt.DB
	log *slog.Logger
}

type storedRecord struct {
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Vector []float32 `json:"v"`
}

func NewBoltStore(path string, log *slog.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketNamespaces, bucketDimensions} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	return &BoltStore{db: db, log: log}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// UpsertMany adds or replaces records by id. The namespace bucket is
// created on first use and its vector dimension pinned; later writes
// with a different dimension are rejected.
func (s *BoltStore) UpsertMany(ctx context.Context, namespace string, items []domain.StoredChunk) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ns, err := tx.Bucket(bucketNamespaces).CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
		}

		dimension, err := s.namespaceDimension(tx, namespace)
		if err != nil {
			return err
		}
		if dimension == 0 {
			dimension = len(items[0].Vector)
			if err := s.putDimension(tx, namespace, dimension); err != nil {
				return err
			}
		}

		for _, item := range items {
			if len(item.Vector) != dimension {
				return fmt.Errorf("vector dimension mismatch in namespace %s: expected %d, got %d for %s",
					namespace, dimension, len(item.Vector), item.ID)
			}

			data, err := json.Marshal(storedRecord{
				Text:   item.Text,
				Source: item.Source,
				Vector: item.Vector,
			})
			if err != nil {
				return err
			}
			if err := ns.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// Query loads every record in the namespace, scores it against the
// query vector, and returns the topK by descending similarity. An
// unknown namespace yields no results.
func (s *BoltStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []domain.ScoredChunk

	err := s.db.View(func(tx *bbolt.Tx) error {
		ns := tx.Bucket(bucketNamespaces).Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}

		dimension, err := s.namespaceDimension(tx, namespace)
		if err != nil {
			return err
		}
		if dimension != 0 && len(vector) != dimension {
			return fmt.Errorf("query dimension mismatch for namespace %s: expected %d, got %d",
				namespace, dimension, len(vector))
		}

		return ns.ForEach(func(k, v []byte) error {
			var rec storedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// Treat a corrupted record as missing data, not a failed read.
				s.log.Warn("skipping corrupted record", "namespace", namespace, "id", string(k), "error", err)
				return nil
			}

			score, err := Cosine(vector, rec.Vector)
			if err != nil {
				return fmt.Errorf("record %s in namespace %s: %w", k, namespace, err)
			}

			results = append(results, domain.ScoredChunk{
				Chunk: domain.StoredChunk{
					ID:     string(k),
					Text:   rec.Text,
					Source: rec.Source,
					Vector: rec.Vector,
				},
				Score: score,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *BoltStore) Count(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		ns := tx.Bucket(bucketNamespaces).Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		count = ns.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNamespaces).ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) namespaceDimension(tx *bbolt.Tx, namespace string) (int, error) {
	data := tx.Bucket(bucketDimensions).Get([]byte(namespace))
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted dimension record for namespace %s", namespace)
	}
	return int(binary.BigEndian.Uint64(data)), nil
}

func (s *BoltStore) putDimension(tx *bbolt.Tx, namespace string, dimension int) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(dimension))
	return tx.Bucket(bucketDimensions).Put([]byte(namespace), buf[:])
}
