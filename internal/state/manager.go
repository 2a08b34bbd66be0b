package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/metrics"
)

const snapshotKey = "snapshot"

// Manager keeps the snapshot of the current run. Nothing survives the
// process: the store lives in memory only.
type Manager interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	Close() error
}

type badgerManager struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func New(metrics *metrics.Metrics) (Manager, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	m := &badgerManager{db: db, metrics: metrics}
	return m, nil
}

func (m *badgerManager) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	m.metrics.IncBadgerRequest("read", err == nil)
	return snapshot, err
}

func (m *badgerManager) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		m.metrics.IncBadgerRequest("update", false)
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), data)
	})
	m.metrics.IncBadgerRequest("update", err == nil)
	return err
}

func (m *badgerManager) Close() error {
	return m.db.Close()
}

// Handler serves the current snapshot as JSON.
func Handler(m Manager, log logr.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := m.LoadSnapshot(r.Context())
		if err != nil {
			log.Error(err, "Failed to load snapshot")
			http.Error(w, "load snapshot", http.StatusInternalServerError)
			return
		}
		if snapshot.IsEmpty() {
			http.Error(w, "not reconciled yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			log.Error(err, "Failed to write status response")
		}
	})
}
