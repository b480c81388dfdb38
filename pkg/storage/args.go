package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/storage/b2"
	"github.com/cathai/invoice-backend/pkg/storage/bolt"
	"github.com/cathai/invoice-backend/pkg/storage/fs"
	"github.com/cathai/invoice-backend/pkg/storage/jsonfile"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage")

const (
	RecordStoreJson = "json"
	RecordStoreBolt = "bolt"
)

func SetupFsStorage(fsPath string) model.AttachmentStorage {
	selectedStorage, err := fs.New(fsPath)
	if err != nil {
		log.Fatalf("unable to create fs storage: %v", err)
	}
	return selectedStorage
}

func SetupB2Storage(config b2.Config) model.AttachmentStorage {
	selectedStorage, err := b2.New(config)
	if err != nil {
		log.Fatalf("unable to create b2 storage: %v", err)
	}
	return selectedStorage
}

// OpenRecordStore opens the invoice list kept in dataDir. storeType is
// either "json" (default) or "bolt".
func OpenRecordStore(storeType string, dataDir string, loc *time.Location) (model.RecordStore, error) {
	switch strings.ToLower(storeType) {
	case "", RecordStoreJson:
		s, err := jsonfile.New(filepath.Join(dataDir, "invoices.json"), jsonfile.WithLocation(loc))
		if err != nil {
			return nil, err
		}
		return s, nil
	case RecordStoreBolt:
		s, err := bolt.New(filepath.Join(dataDir, "invoices.db"), bolt.WithLocation(loc))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown record store type: %s", storeType)
}
