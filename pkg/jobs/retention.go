package jobs

import (
	"fmt"
	"time"

	"github.com/cathai/invoice-backend/pkg/metrics"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

const DefaultRetention = 7 * 24 * time.Hour

type AttachmentPurger interface {
	model.Lister
	model.Remover
}

// Retention deletes invoice photos older than MaxAge. Records are left
// alone.
type Retention struct {
	Files   AttachmentPurger
	MaxAge  time.Duration
	Metrics *metrics.Metrics

	now func() time.Time
}

func NewRetention(files AttachmentPurger, maxAge time.Duration) *Retention {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	return &Retention{Files: files, MaxAge: maxAge, now: time.Now}
}

func (r *Retention) Name() string {
	return "retention"
}

// Run returns the number of deleted files. Failures on single files are
// logged and skipped.
func (r *Retention) Run() (int, error) {
	attachments, err := r.Files.List()
	if err != nil {
		return 0, fmt.Errorf("unable to list attachments: %w", err)
	}

	now := r.now()
	deleted := 0
	for _, a := range attachments {
		age := now.Sub(a.ModTime)
		if age <= r.MaxAge {
			continue
		}
		if err := r.Files.Remove(a.Name); err != nil {
			log.Warnf("unable to delete %s: %v", a.Name, err)
			continue
		}
		log.Debugf("deleted %s (age %s)", a.Name, age.Truncate(time.Second))
		deleted++
	}

	r.Metrics.AttachmentsPurged(deleted)
	log.Infof("retention: deleted %d of %d attachments", deleted, len(attachments))
	return deleted, nil
}
