// Package daemon drives synchronization passes at a fixed interval.
package daemon

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/sync"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// Syncer runs a single synchronization pass.
type Syncer interface {
	Sync() (sync.Stats, error)
}

// Daemon repeatedly runs a Syncer. Passes never overlap: the next pass starts
// `interval` after the previous one completes.
type Daemon struct {
	syncer   Syncer
	interval time.Duration
	clock    clockwork.Clock
	log      *synclog.Logger
}

// New creates a Daemon that sleeps for `interval` between passes.
func New(log *synclog.Logger, syncer Syncer, interval time.Duration) *Daemon {
	return &Daemon{
		syncer:   syncer,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		log:      log,
	}
}

// Run runs passes until `ctx` is cancelled. Cancellation is only noticed
// while sleeping, so a pass that has started always runs to completion.
func (d *Daemon) Run(ctx context.Context) {
	for {
		// Failures are already logged, and the next pass retries them.
		d.RunOnce() // nolint: errcheck

		d.log.Infof("Sleeping for %s", d.interval)
		select {
		case <-ctx.Done():
			d.log.Info("Stopping synchronization")
			return
		case <-d.clock.After(d.interval):
		}
	}
}

// RunOnce runs a single pass and logs its outcome. The pass error is
// returned for callers that don't retry.
func (d *Daemon) RunOnce() (sync.Stats, error) {
	d.log.Info("Synchronization started")
	start := d.clock.Now()

	stats, err := d.syncer.Sync()
	if err != nil {
		d.log.Error(err, "", "Synchronization failed. Will retry on the next pass.")
	}

	d.log.WithFields(logrus.Fields{
		"created":  stats.FilesCreated + stats.DirsCreated,
		"modified": stats.FilesModified,
		"deleted":  stats.FilesDeleted + stats.DirsDeleted,
		"errors":   stats.Errors,
		"copied":   humanize.Bytes(uint64(stats.BytesCopied)),
		"duration": d.clock.Now().Sub(start).Round(time.Millisecond).String(),
	}).Info("Synchronization completed")
	return stats, err
}
