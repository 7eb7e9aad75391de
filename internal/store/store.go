// Package store persists torc's entities in a single embedded bbolt
// database file, one bucket per entity kind. It is the only package that
// touches *bbolt.Tx directly; every other package goes through its
// exported methods.
package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	bucketWorkflows       = []byte("workflows")
	bucketJobs            = []byte("jobs")
	bucketResourceReqs    = []byte("resource_requirements")
	bucketFiles           = []byte("files")
	bucketUserData        = []byte("user_data")
	bucketSchedulers      = []byte("schedulers")
	bucketScheduledNodes  = []byte("scheduled_compute_nodes")
	bucketComputeNodes    = []byte("compute_nodes")
	bucketResults         = []byte("results")
	bucketEvents          = []byte("events")
	bucketWorkflowActions = []byte("workflow_actions")
	bucketCounters        = []byte("counters")
	bucketUniqueIndex     = []byte("unique_index")

	allBuckets = [][]byte{
		bucketWorkflows, bucketJobs, bucketResourceReqs, bucketFiles,
		bucketUserData, bucketSchedulers, bucketScheduledNodes,
		bucketComputeNodes, bucketResults, bucketEvents,
		bucketWorkflowActions, bucketCounters, bucketUniqueIndex,
	}
)

// Store is the bbolt-backed persistent store for one torc server process.
type Store struct {
	db *bbolt.DB

	readLatency  metric.Float64Histogram
	writeLatency metric.Float64Histogram
}

// Open opens (creating if absent) the database file at path and ensures
// every bucket exists.
func Open(path string, meter metric.Meter) (*Store, error) {
	opts := &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	readLatency, _ := meter.Float64Histogram("torc_store_read_ms")
	writeLatency, _ := meter.Float64Histogram("torc_store_write_ms")

	return &Store{db: db, readLatency: readLatency, writeLatency: writeLatency}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) recordWrite(ctx context.Context, op string, start time.Time) {
	s.writeLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("operation", op)))
}

func (s *Store) recordRead(ctx context.Context, op string, start time.Time) {
	s.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("operation", op)))
}

// encodeKey builds the big-endian workflowID|entityID composite key used to
// prefix-scan a single workflow's rows within an entity bucket.
func encodeKey(workflowID, entityID int64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(workflowID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(entityID))
	return buf
}

// encodePrefix builds the workflow-id-only prefix used to seek a bucket
// cursor at the start of one workflow's rows.
func encodePrefix(workflowID int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(workflowID))
	return buf
}

// decodeEntityID extracts the trailing entity id from a composite key.
func decodeEntityID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[8:16]))
}

// globalKey encodes a bare entity id for buckets with no workflow scoping
// (workflows themselves; counters).
func globalKey(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// nextID increments and returns the per-(workflow,kind) counter stored in
// bucketCounters, keyed by kind|workflowID. workflowID 0 is used for the
// global workflow-id counter itself.
func nextID(tx *bbolt.Tx, kind string, workflowID int64) (int64, error) {
	b := tx.Bucket(bucketCounters)
	key := append([]byte(kind+"|"), globalKey(workflowID)...)
	cur := uint64(0)
	if v := b.Get(key); v != nil {
		cur = binary.BigEndian.Uint64(v)
	}
	cur++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, cur)
	if err := b.Put(key, buf); err != nil {
		return 0, err
	}
	return int64(cur), nil
}

func uniqueKey(kind, workflowIDAndName string) []byte {
	return []byte(kind + "|" + workflowIDAndName)
}

// checkAndReserveUnique writes key into bucketUniqueIndex, failing if it
// already maps to a different entity id. Pass "" for name to skip the check
// (some entities have no unique-name requirement).
func checkAndReserveUnique(tx *bbolt.Tx, kind string, workflowID int64, name string, entityID int64) error {
	if name == "" {
		return nil
	}
	b := tx.Bucket(bucketUniqueIndex)
	key := uniqueKey(kind, fmt.Sprintf("%d|%s", workflowID, name))
	existing := b.Get(key)
	if existing != nil {
		existingID := int64(binary.BigEndian.Uint64(existing))
		if existingID != entityID {
			return fmt.Errorf("name %q already in use", name)
		}
		return nil
	}
	buf := globalKey(entityID)
	return b.Put(key, buf)
}

func releaseUnique(tx *bbolt.Tx, kind string, workflowID int64, name string) error {
	if name == "" {
		return nil
	}
	b := tx.Bucket(bucketUniqueIndex)
	return b.Delete(uniqueKey(kind, fmt.Sprintf("%d|%s", workflowID, name)))
}
