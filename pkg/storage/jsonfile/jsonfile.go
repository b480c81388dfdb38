package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/invoiceid"
	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/jsonfile")

var _ model.RecordStore = (*Store)(nil)

// Store keeps every invoice request in a single JSON array. Each append
// rewrites the whole file.
type Store struct {
	path     string
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

	s := &Store{
		path:     path,
		ids:      invoiceid.New(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	records, _ := s.read()
	for _, r := range records {
		s.ids.Observe(r.Id)
	}
	log.Debugf("loaded %d records from %s", len(records), path)
	return s, nil
}

func (s *Store) Append(record *models.InvoiceRequest) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.read()
	if err != nil {
		log.Warnf("%s is unreadable, starting a new list: %v", s.path, err)
		s.quarantine()
		records = nil
	}

	now := s.now()
	record.Timestamp = now.UTC().Truncate(time.Millisecond)
	record.Id = s.ids.Next(now)

	records = append(records, *record)
	if err := s.write(records); err != nil {
		return fmt.Errorf("unable to write %s: %w", s.path, err)
	}
	log.Debugf("appended %s (%d records)", record.Id, len(records))
	return nil
}

func (s *Store) All() []models.InvoiceRequest {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.read()
	if err != nil {
		log.Errorf("unable to read %s: %v", s.path, err)
		return []models.InvoiceRequest{}
	}
	return records
}

func (s *Store) Today() []models.InvoiceRequest {
	return model.FilterSameDay(s.All(), s.now(), s.location)
}

func (s *Store) Close() error {
	return nil
}

// read returns an empty list when the file does not exist yet.
func (s *Store) read() ([]models.InvoiceRequest, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.InvoiceRequest{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []models.InvoiceRequest
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.InvoiceRequest{}
	}
	return records, nil
}

func (s *Store) write(records []models.InvoiceRequest) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// quarantine moves an unreadable file out of the way so the next write does
// not destroy it.
func (s *Store) quarantine() {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().UnixMilli())
	if err := os.Rename(s.path, dst); err != nil {
		log.Errorf("unable to move %s to %s: %v", s.path, dst, err)
		return
	}
	log.Warnf("moved unreadable store to %s", dst)
}
