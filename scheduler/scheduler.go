package scheduler

import (
	"time"

	"github.com/ajaxtable/go_ajaxtable/activity"
	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/robfig/cron/v3"
)

var QueueCron *cron.Cron

// InitScheduler registers the recurring maintenance jobs: the database
// backup and the activity prune. Schedules come from the general config.
func InitScheduler() {
	cfgGeneral := config.ConfigGetGeneral()

	QueueCron = cron.New(cron.WithLogger(cron.DiscardLogger))

	if cfgGeneral.BackupSchedule != "" {
		_, err := QueueCron.AddFunc(cfgGeneral.BackupSchedule, func() {
			BackupNow()
		})
		if err != nil {
			logger.Log.Error("Cron add backup: ", err)
		}
	}
	if cfgGeneral.PruneSchedule != "" {
		_, err := QueueCron.AddFunc(cfgGeneral.PruneSchedule, func() {
			PruneNow()
		})
		if err != nil {
			logger.Log.Error("Cron add prune: ", err)
		}
	}
	QueueCron.Start()
}

// BackupNow writes a timestamped copy of the database and removes
// copies beyond the retention count.
func BackupNow() {
	cfgGeneral := config.ConfigGetGeneral()
	backupTo := "./backup/data.db." + time.Now().Format("20060102_150405")
	if err := database.Backup(database.DB, backupTo, cfgGeneral.MaxDatabaseBackups); err != nil {
		logger.Log.Error("Database backup: ", err)
		return
	}
	logger.Log.Info("Database backup written: ", backupTo)
}

// PruneNow deletes activity rows past the retention window.
func PruneNow() {
	cfgGeneral := config.ConfigGetGeneral()
	deleted, err := activity.Prune(cfgGeneral.ActivityRetentionDays)
	if err != nil {
		logger.Log.Error("Activity prune: ", err)
		return
	}
	if deleted > 0 {
		logger.Log.Info("Activity rows pruned: ", deleted)
	}
}

// StopScheduler stops the cron loop and waits for running jobs.
func StopScheduler() {
	if QueueCron == nil {
		return
	}
	ctx := QueueCron.Stop()
	<-ctx.Done()
}
