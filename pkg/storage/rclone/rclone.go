package rclone

import (
	"context"
	"time"

	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/hash"
)

// UploadInfo describes an attachment that is about to be uploaded to an
// rclone remote.
type UploadInfo struct {
	remote      string
	contentType string
	modTime     time.Time
	size        int64
}

func NewUploadInfo(remote string, contentType string, modTime time.Time, size int64) UploadInfo {
	return UploadInfo{
		remote:      remote,
		contentType: contentType,
		modTime:     modTime,
		size:        size,
	}
}

type localInfo struct{}

func (localInfo) Name() string {
	return "upload"
}

func (localInfo) Root() string {
	return "/"
}

func (localInfo) String() string {
	return "upload"
}

func (localInfo) Precision() time.Duration {
	return time.Millisecond
}

func (localInfo) Hashes() hash.Set {
	return hash.Set(hash.None)
}

func (localInfo) Features() *fs.Features {
	return &fs.Features{}
}

var _ fs.Info = localInfo{}

func (u UploadInfo) String() string {
	return u.remote
}

func (u UploadInfo) Remote() string {
	return u.remote
}

func (u UploadInfo) ModTime(ctx context.Context) time.Time {
	return u.modTime
}

func (u UploadInfo) Size() int64 {
	return u.size
}

func (u UploadInfo) Fs() fs.Info {
	return localInfo{}
}

func (u UploadInfo) Hash(ctx context.Context, ty hash.Type) (string, error) {
	return "", hash.ErrUnsupported
}

func (u UploadInfo) Storable() bool {
	return true
}

// MimeType lets backends that support it store the photo's content type.
func (u UploadInfo) MimeType(ctx context.Context) string {
	return u.contentType
}

var _ fs.ObjectInfo = UploadInfo{}
var _ fs.MimeTyper = UploadInfo{}
