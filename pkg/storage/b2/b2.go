package b2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	rcloneb2 "github.com/rclone/rclone/backend/b2"
	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/config/configmap"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/crypt"
	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
	"github.com/cathai/invoice-backend/pkg/storage/rclone"
)

var log = logrus.StandardLogger().WithField("package", "storage/b2")
var _ model.AttachmentStorage = (*B2)(nil)

// B2 keeps the invoice photos in a Backblaze B2 bucket, optionally
// encrypted.
type B2 struct {
	b2fs   fs.Fs
	prefix string
	crypt  *crypt.Sealer
}

func (b *B2) Store(upload models.Upload) (err error) {
	ctx := context.Background()

	reader := upload.Reader
	if b.crypt != nil {
		reader, err = b.crypt.Encrypt(upload.Reader)
		if err != nil {
			return err
		}
		if _, err := upload.Reader.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	fileSize, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	_, err = reader.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	modTime := upload.UploadedAt
	if modTime.IsZero() {
		modTime = time.Now()
	}
	info := rclone.NewUploadInfo(b.remote(upload.Name), upload.ContentType, modTime, fileSize)
	obj, err := b.b2fs.Put(ctx, reader, info)
	if err != nil {
		return err
	}
	log.Debugf("stored %s (%d bytes)", obj.Remote(), obj.Size())
	return nil
}

func (b *B2) remote(name string) string {
	return b.prefix + name
}

func (b *B2) Retrieve(name string) (io.ReadCloser, error) {
	ctx := context.Background()
	obj, err := b.b2fs.NewObject(ctx, b.remote(name))
	if err != nil {
		if errors.Is(err, fs.ErrorObjectNotFound) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}

	objReader, err := obj.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer objReader.Close()

	if b.crypt != nil {
		plain, err := b.crypt.Decrypt(objReader)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(plain), nil
	}

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, objReader); err != nil {
		return nil, err
	}
	return io.NopCloser(buffer), nil
}

func (b *B2) List() ([]models.Attachment, error) {
	ctx := context.Background()
	entries, err := b.b2fs.List(ctx, trimSlash(b.prefix))
	if err != nil {
		if errors.Is(err, fs.ErrorDirNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var attachments []models.Attachment
	for _, e := range entries {
		obj, ok := e.(fs.Object)
		if !ok {
			continue
		}
		attachments = append(attachments, models.Attachment{
			Name:    obj.Remote()[len(b.prefix):],
			Size:    obj.Size(),
			ModTime: obj.ModTime(ctx),
		})
	}
	return attachments, nil
}

func (b *B2) Remove(name string) error {
	ctx := context.Background()
	obj, err := b.b2fs.NewObject(ctx, b.remote(name))
	if err != nil {
		if errors.Is(err, fs.ErrorObjectNotFound) {
			return os.ErrNotExist
		}
		return err
	}
	return obj.Remove(ctx)
}

func trimSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

type Config struct {
	Account    string
	Key        string
	BucketName string

	// Directory inside the bucket, defaults to "uploads"
	Prefix string

	// Encryption specific
	Passphrase string
}

func New(config Config) (*B2, error) {
	if config.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if config.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if config.BucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if config.Prefix == "" {
		config.Prefix = "uploads"
	}

	if len(config.Passphrase) == 0 {
		log.Warnf("no passphrase provided, encryption will be disabled")
	}

	b2fs, err := rcloneb2.NewFs(context.Background(),
		"b2",
		config.BucketName+"/",
		configmap.Simple{
			"account":    config.Account,
			"key":        config.Key,
			"chunk_size": "5M",
		},
	)
	if err != nil {
		return nil, err
	}

	b := &B2{
		b2fs:   b2fs,
		prefix: trimSlash(config.Prefix) + "/",
	}

	if len(config.Passphrase) != 0 {
		b.crypt, err = crypt.New(config.Passphrase)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}
