// Command atelier-maintenance runs the scheduled housekeeping jobs:
// activity log retention and a membership consistency check. It is meant to
// run as a single long-lived process alongside the API servers.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/groups"
	"github.com/atelierhq/atelier/pkg/observability"
	"github.com/atelierhq/atelier/pkg/storage/postgres"
)

var (
	retentionSchedule   = flag.String("retention-schedule", "30 2 * * *", "Cron schedule for the activity retention purge")
	consistencySchedule = flag.String("consistency-schedule", "0 * * * *", "Cron schedule for the membership consistency check")
	runOnce             = flag.Bool("run-once", false, "Run every job once and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	observability.SetupLogging(cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	reader := activity.NewReader(db)
	groupService := groups.NewPostgresService(db, nil)

	purge := func() {
		cutoff := time.Now().Add(-cfg.Activity.Retention)
		deleted, err := reader.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			logrus.WithError(err).Error("activity retention purge failed")
			return
		}
		logrus.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("activity retention purge complete")
	}

	checkConsistency := func() {
		orphans, err := groupService.CountOrphanMemberships(ctx)
		if err != nil {
			logrus.WithError(err).Error("membership consistency check failed")
			return
		}
		if orphans > 0 {
			// Cascading deletes run in one transaction, so a nonzero count
			// means rows were written outside the service layer.
			logrus.WithField("orphans", orphans).Warn("orphaned group memberships detected")
			return
		}
		logrus.Info("membership consistency check clean")
	}

	if *runOnce {
		purge()
		checkConsistency()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*retentionSchedule, purge); err != nil {
		logrus.WithError(err).Fatal("invalid retention schedule")
	}
	if _, err := scheduler.AddFunc(*consistencySchedule, checkConsistency); err != nil {
		logrus.WithError(err).Fatal("invalid consistency schedule")
	}

	scheduler.Start()
	logrus.WithFields(logrus.Fields{
		"retention_schedule":   *retentionSchedule,
		"consistency_schedule": *consistencySchedule,
	}).Info("maintenance scheduler started")

	<-ctx.Done()
	logrus.Info("shutting down")
	<-scheduler.Stop().Done()
}
