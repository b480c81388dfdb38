package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/metrics"
	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
	"github.com/cathai/invoice-backend/pkg/telegram"
)

var log = logrus.StandardLogger().WithField("package", "notifier")

const DefaultTimeout = 10 * time.Second

var ErrNoAttachments = errors.New("no attachment storage configured")

// Sender delivers messages to the single configured chat.
type Sender interface {
	SendMessage(ctx context.Context, text string, parseMode string) error
	SendPhoto(ctx context.Context, photo io.Reader, fileName string, caption string) error
}

var _ Sender = (*telegram.Client)(nil)

// Notifier relays invoice requests to the chat. Delivery is best effort:
// errors are returned to the caller to be logged, never retried.
type Notifier struct {
	sender    Sender
	files     model.Retriever
	storeName string
	location  *time.Location
	timeout   time.Duration
	metrics   *metrics.Metrics
}

type Config struct {
	Sender Sender
	// Files is only needed to send photos.
	Files     model.Retriever
	StoreName string
	Location  *time.Location
	Timeout   time.Duration
	Metrics   *metrics.Metrics
}

func New(config Config) (*Notifier, error) {
	if config.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Notifier{
		sender:    config.Sender,
		files:     config.Files,
		storeName: config.StoreName,
		location:  config.Location,
		timeout:   config.Timeout,
		metrics:   config.Metrics,
	}, nil
}

func (n *Notifier) Location() *time.Location {
	return n.location
}

// SendText delivers an HTML formatted message.
func (n *Notifier) SendText(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err := n.sender.SendMessage(ctx, message, telegram.ParseModeHTML)
	n.metrics.Notification("text", err)
	return err
}

// SendPhoto delivers the stored attachment name with a plain text caption.
func (n *Notifier) SendPhoto(ctx context.Context, name string, caption string) error {
	err := n.sendPhoto(ctx, name, caption)
	n.metrics.Notification("photo", err)
	return err
}

func (n *Notifier) sendPhoto(ctx context.Context, name string, caption string) error {
	if n.files == nil {
		return ErrNoAttachments
	}
	f, err := n.files.Retrieve(name)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", name, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.sender.SendPhoto(ctx, f, path.Base(name), caption)
}

// NotifyInvoice sends the photo and then the detail message. Both are
// attempted whatever happens to the other one.
func (n *Notifier) NotifyInvoice(ctx context.Context, r models.InvoiceRequest) {
	l := log.WithField("invoiceId", r.Id)

	if r.ImagePath == "" {
		l.Warnf("no photo to send")
	} else if err := n.SendPhoto(ctx, r.ImagePath, PhotoCaption(r, telegram.CaptionLimit)); err != nil {
		l.Errorf("unable to send photo: %v", err)
	}

	if err := n.SendText(ctx, DetailMessage(r, n.location, n.storeName)); err != nil {
		l.Errorf("unable to send message: %v", err)
	}
}
