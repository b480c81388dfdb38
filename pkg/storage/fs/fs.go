package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/fs")

// Fs stores attachments as flat files in a single directory.
type Fs struct {
	dir string
}

func (fs *Fs) Retrieve(name string) (io.ReadCloser, error) {
	p, err := fs.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (fs *Fs) Store(upload models.Upload) error {
	p, err := fs.path(upload.Name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, upload.Reader); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return err
	}
	if _, err := upload.Reader.Seek(0, io.SeekStart); err != nil {
		return err
	}
	log.Debugf("Created file %s", p)
	return nil
}

// List returns every regular file in the directory. Files that cannot be
// stat'ed are logged and left out.
func (fs *Fs) List() ([]models.Attachment, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, err
	}

	var attachments []models.Attachment
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warnf("unable to stat %s: %v", e.Name(), err)
			continue
		}
		attachments = append(attachments, models.Attachment{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return attachments, nil
}

func (fs *Fs) Remove(name string) error {
	p, err := fs.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// path refuses anything that is not a plain file name inside the directory.
func (fs *Fs) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid attachment name %q", name)
	}
	return filepath.Join(fs.dir, name), nil
}

var _ model.AttachmentStorage = (*Fs)(nil)

func New(dir string) (*Fs, error) {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create storage directory: %w", err)
		}
	}

	fs := &Fs{
		dir: dir,
	}
	return fs, nil
}
