package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/fs"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

func touch(t *testing.T, dir string, name string, mtime time.Time) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func TestRetention_Run(t *testing.T) {
	dir := t.TempDir()
	files, err := fs.New(dir)
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	day := 24 * time.Hour
	touch(t, dir, "six.jpg", now.Add(-6*day))
	touch(t, dir, "seven.jpg", now.Add(-7*day))
	touch(t, dir, "eight.jpg", now.Add(-8*day))

	r := NewRetention(files, 0)
	r.now = func() time.Time { return now }

	deleted, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	assert.FileExists(t, filepath.Join(dir, "six.jpg"))
	assert.FileExists(t, filepath.Join(dir, "seven.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "eight.jpg"))
}

func TestRetention_Empty(t *testing.T) {
	files, err := fs.New(t.TempDir())
	require.NoError(t, err)

	deleted, err := NewRetention(files, time.Hour).Run()
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

type flakyPurger struct {
	attachments []models.Attachment
	failing     string
	removed     []string
}

func (f *flakyPurger) List() ([]models.Attachment, error) {
	return f.attachments, nil
}

func (f *flakyPurger) Remove(name string) error {
	if name == f.failing {
		return fmt.Errorf("permission denied")
	}
	f.removed = append(f.removed, name)
	return nil
}

func TestRetention_RemoveFailureSkipped(t *testing.T) {
	now := time.Now()
	old := now.Add(-30 * 24 * time.Hour)
	files := &flakyPurger{
		attachments: []models.Attachment{
			{Name: "bad.jpg", ModTime: old},
			{Name: "good.jpg", ModTime: old},
		},
		failing: "bad.jpg",
	}

	r := NewRetention(files, 0)
	r.now = func() time.Time { return now }

	deleted, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"good.jpg"}, files.removed)
}
