package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	bbolt "go.etcd.io/bbolt"

	"github.com/cathai/invoice-backend/pkg/invoiceid"
	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/bolt")

var _ model.RecordStore = (*Store)(nil)

const bucketInvoices = "invoices"

// Store keeps invoice requests in a bbolt database. Keys are the bucket
// sequence, so a cursor walks the records in append order.
type Store struct {
	db       *bbolt.DB
	mutex    sync.Mutex
	ids      *invoiceid.Generator
	location *time.Location
	now      func() time.Time
}

type Option func(*Store)

func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.location = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketInvoices))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create bucket %s: %w", bucketInvoices, err)
	}

	s := &Store{
		db:       db,
		ids:      invoiceid.New(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, r := range s.All() {
		s.ids.Observe(r.Id)
	}
	return s, nil
}

func (s *Store) Append(record *models.InvoiceRequest) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	stored := *record
	stored.Timestamp = now.UTC().Truncate(time.Millisecond)
	stored.Id = s.ids.Next(now)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketInvoices))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		v, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), v)
	})
	if err != nil {
		return fmt.Errorf("unable to store %s: %w", stored.Id, err)
	}

	record.Id = stored.Id
	record.Timestamp = stored.Timestamp
	return nil
}

func (s *Store) All() []models.InvoiceRequest {
	records := []models.InvoiceRequest{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketInvoices)).ForEach(func(k, v []byte) error {
			var r models.InvoiceRequest
			if err := json.Unmarshal(v, &r); err != nil {
				log.Warnf("skipping unreadable record %d: %v", binary.BigEndian.Uint64(k), err)
				return nil
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		log.Errorf("unable to read records: %v", err)
		return []models.InvoiceRequest{}
	}
	return records
}

func (s *Store) Today() []models.InvoiceRequest {
	return model.FilterSameDay(s.All(), s.now(), s.location)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
