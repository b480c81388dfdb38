package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/metrics"
)

var log = logrus.StandardLogger().WithField("package", "jobs")

// Cron specs include seconds.
const (
	DefaultRetentionSchedule = "0 0 2 * * *"
	DefaultDigestSchedule    = "0 0 21 * * *"
)

// Scheduler runs the daily jobs in the configured location. Runs missed
// while the process was down are not caught up.
type Scheduler struct {
	cron    *cron.Cron
	metrics *metrics.Metrics
}

func NewScheduler(loc *time.Location, m *metrics.Metrics) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{cron: cron.NewWithLocation(loc), metrics: m}
}

func (s *Scheduler) AddRetention(spec string, r *Retention) error {
	return s.add(spec, r.Name(), func() error {
		_, err := r.Run()
		return err
	})
}

func (s *Scheduler) AddDigest(spec string, d *Digest) error {
	return s.add(spec, d.Name(), func() error {
		_, err := d.Run(context.Background())
		return err
	})
}

func (s *Scheduler) add(spec string, name string, run func() error) error {
	err := s.cron.AddFunc(spec, func() {
		log.Debugf("running %s", name)
		err := run()
		if err != nil {
			log.Errorf("%s failed: %v", name, err)
		}
		s.metrics.JobRun(name, err)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	log.Infof("scheduled %s at %q", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
