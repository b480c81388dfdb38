package notifier_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/notifier"
	"github.com/cathai/invoice-backend/pkg/storage/fs"
)

type sentMessage struct {
	Kind    string
	Text    string
	Payload string
}

type fakeSender struct {
	mutex     sync.Mutex
	sent      []sentMessage
	photoErr  error
	textErr   error
	photoWait time.Duration
}

func (f *fakeSender) SendMessage(ctx context.Context, text string, parseMode string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = append(f.sent, sentMessage{Kind: "text", Text: text})
	return f.textErr
}

func (f *fakeSender) SendPhoto(ctx context.Context, photo io.Reader, fileName string, caption string) error {
	if f.photoWait > 0 {
		select {
		case <-time.After(f.photoWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b, err := io.ReadAll(photo)
	if err != nil {
		return err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = append(f.sent, sentMessage{Kind: "photo", Text: caption, Payload: string(b)})
	return f.photoErr
}

func newNotifier(t *testing.T, sender *fakeSender, timeout time.Duration) *notifier.Notifier {
	files, err := fs.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, files.Store(models.Upload{Reader: bytes.NewReader([]byte("jpeg")), Name: "invoice-1.jpg"}))

	n, err := notifier.New(notifier.Config{
		Sender:    sender,
		Files:     files,
		StoreName: "Cửa hàng Cát Hải",
		Location:  time.FixedZone("ICT", 7*60*60),
		Timeout:   timeout,
	})
	require.NoError(t, err)
	return n
}

var record = models.InvoiceRequest{
	Id:        "INV-TEST",
	Timestamp: time.Date(2026, 10, 16, 7, 5, 0, 0, time.UTC),
	Name:      "Nguyễn Văn A",
	Phone:     "0912345678",
	Email:     "a@b.com",
	Mst:       "0101234567",
	ImagePath: "invoice-1.jpg",
}

func TestNotifier_NotifyInvoice(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(t, sender, time.Second)

	n.NotifyInvoice(context.Background(), record)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "photo", sender.sent[0].Kind)
	assert.Equal(t, "jpeg", sender.sent[0].Payload)
	assert.Contains(t, sender.sent[0].Text, "MST: 0101234567")
	assert.Equal(t, "text", sender.sent[1].Kind)
	assert.Contains(t, sender.sent[1].Text, "YÊU CẦU XUẤT HÓA ĐƠN MỚI")
}

func TestNotifier_PhotoFailureStillSendsText(t *testing.T) {
	sender := &fakeSender{photoErr: errors.New("telegram down")}
	n := newNotifier(t, sender, time.Second)

	assert.NotPanics(t, func() {
		n.NotifyInvoice(context.Background(), record)
	})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "text", sender.sent[1].Kind)
}

func TestNotifier_MissingPhotoStillSendsText(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(t, sender, time.Second)

	r := record
	r.ImagePath = "invoice-gone.jpg"
	assert.Error(t, n.SendPhoto(context.Background(), r.ImagePath, "caption"))

	n.NotifyInvoice(context.Background(), r)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "text", sender.sent[0].Kind)
}

func TestNotifier_Timeout(t *testing.T) {
	sender := &fakeSender{photoWait: time.Minute}
	n := newNotifier(t, sender, 20*time.Millisecond)

	err := n.SendPhoto(context.Background(), "invoice-1.jpg", "caption")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RequiresSender(t *testing.T) {
	_, err := notifier.New(notifier.Config{})
	assert.Error(t, err)
}

func TestNew_TextOnly(t *testing.T) {
	sender := &fakeSender{}
	n, err := notifier.New(notifier.Config{Sender: sender})
	require.NoError(t, err)

	require.NoError(t, n.SendText(context.Background(), "digest"))
	assert.ErrorIs(t, n.SendPhoto(context.Background(), "invoice-1.jpg", "caption"), notifier.ErrNoAttachments)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "text", sender.sent[0].Kind)
}
