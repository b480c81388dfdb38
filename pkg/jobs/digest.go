package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cathai/invoice-backend/pkg/notifier"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

type TextSender interface {
	SendText(ctx context.Context, message string) error
}

// Digest sends a single summary of today's invoice requests.
type Digest struct {
	Records  model.RecordQuerier
	Sender   TextSender
	Location *time.Location

	now func() time.Time
}

func NewDigest(records model.RecordQuerier, sender TextSender, loc *time.Location) *Digest {
	if loc == nil {
		loc = time.Local
	}
	return &Digest{Records: records, Sender: sender, Location: loc, now: time.Now}
}

func (d *Digest) Name() string {
	return "digest"
}

// Run returns the number of records in the digest.
func (d *Digest) Run(ctx context.Context) (int, error) {
	records := d.Records.Today()
	message := notifier.DigestMessage(d.now().In(d.Location), records)
	if err := d.Sender.SendText(ctx, message); err != nil {
		return len(records), fmt.Errorf("unable to send digest: %w", err)
	}
	log.Infof("digest: sent summary of %d requests", len(records))
	return len(records), nil
}
