package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"go.etcd.io/bbolt"

	"lawrag/internal/domain"
)

var (
	bucketVectors  = []byte("vectors")
	bucketRows     = []byte("rows")
	bucketSnapshot = []byte("snapshot")
	keySnapshot    = []byte("config")
)

// Snapshot pins the configuration an index artifact was built with.
// A persisted artifact is only reusable when its snapshot matches the
// live configuration.
type Snapshot struct {
	EmbeddingModel string  `json:"embedding_model"`
	Dimension      int     `json:"dimension"`
	MaxChars       int     `json:"max_chars"`
	MinChars       int     `json:"min_chars"`
	OverlapRatio   float64 `json:"overlap_ratio"`
}

// ArtifactStore persists the vector index artifact: row-keyed vectors,
// row-keyed chunk metadata, and the configuration snapshot.
type ArtifactStore struct {
	db *bbolt.DB
}

func NewArtifactStore(path string) (*ArtifactStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index artifact: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketRows, bucketSnapshot} {
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

	return &ArtifactStore{db: db}, nil
}

func (s *ArtifactStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored artifact wholesale.
func (s *ArtifactStore) Save(snap Snapshot, vectors [][]float32, rows []domain.TextChunk) error {
	if len(vectors) != len(rows) {
		return fmt.Errorf("vector/row count mismatch: %d vs %d", len(vectors), len(rows))
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketVectors, bucketRows} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		vb := tx.Bucket(bucketVectors)
		rb := tx.Bucket(bucketRows)

		for ord := range rows {
			key := rowKey(ord)

			if err := vb.Put(key, encodeVector(vectors[ord])); err != nil {
				return err
			}

			meta, err := json.Marshal(rows[ord])
			if err != nil {
				return err
			}
			if err := rb.Put(key, meta); err != nil {
				return err
			}
		}

		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSnapshot).Put(keySnapshot, data)
	})
}

// Load reads the artifact back, failing fast with a ConfigurationError
// when the stored snapshot does not match the expected one.
func (s *ArtifactStore) Load(expected Snapshot) ([][]float32, []domain.TextChunk, error) {
	var (
		vectors [][]float32
		rows    []domain.TextChunk
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSnapshot).Get(keySnapshot)
		if data == nil {
			return domain.NewConfigurationError("index", "artifact has no config snapshot")
		}
		var stored Snapshot
		if err := json.Unmarshal(data, &stored); err != nil {
			return domain.NewConfigurationError("index", "unreadable config snapshot: %v", err)
		}
		if stored != expected {
			return domain.NewConfigurationError("index",
				"artifact built with model=%s dim=%d chunking=%d/%d/%.2f, current config differs",
				stored.EmbeddingModel, stored.Dimension, stored.MaxChars, stored.MinChars, stored.OverlapRatio)
		}

		rb := tx.Bucket(bucketRows)
		if err := rb.ForEach(func(k, v []byte) error {
			var chunk domain.TextChunk
			if err := json.Unmarshal(v, &chunk); err != nil {
				return fmt.Errorf("corrupt row %d: %w", decodeRowKey(k), err)
			}
			rows = append(rows, chunk)
			return nil
		}); err != nil {
			return err
		}

		vb := tx.Bucket(bucketVectors)
		return vb.ForEach(func(k, v []byte) error {
			vectors = append(vectors, decodeVector(v))
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) != len(rows) {
		return nil, nil, fmt.Errorf("artifact corrupt: %d vectors for %d rows", len(vectors), len(rows))
	}

	return vectors, rows, nil
}

// Empty reports whether no artifact has been saved yet.
func (s *ArtifactStore) Empty() (bool, error) {
	empty := true
	err := s.db.View(func(tx *bbolt.Tx) error {
		empty = tx.Bucket(bucketSnapshot).Get(keySnapshot) == nil
		return nil
	})
	return empty, err
}

// rowKey encodes the ordinal big-endian so bucket iteration preserves
// row order.
func rowKey(ord int) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(ord))
	return key[:]
}

func decodeRowKey(key []byte) int {
	if len(key) != 8 {
		return -1
	}
	return int(binary.BigEndian.Uint64(key))
}

func encodeVector(vec []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4*len(vec)))
	for _, v := range vec {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
