package export

import (
	"context"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"price-monitor/internal/logging"
	"price-monitor/internal/models"
)

// Source returns the records to export.
type Source func() []models.Observation

// Job writes one export when run.
type Job struct {
	Dir      string
	Prefix   string
	Format   Format
	Location *time.Location
	Source   Source
	now      func() time.Time
}

// Name identifies the job in logs.
func (j *Job) Name() string { return "export-" + string(j.Format) }

// Run writes the current snapshot to a timestamped file in Dir and returns
// its path. An empty snapshot writes nothing.
func (j *Job) Run(ctx context.Context) (string, error) {
	records := j.Source()
	if len(records) == 0 {
		return "", nil
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	prefix := j.Prefix
	if prefix == "" {
		prefix = "stock_data"
	}
	path := filepath.Join(j.Dir, FileName(prefix, j.Format, now().In(location(j.Location))))
	return path, Save(ctx, path, j.Format, records, j.Location)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// Scheduler runs export jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a scheduler. Schedules accept an optional seconds
// field and descriptors such as "@hourly" or "@every 15m".
func NewScheduler(log zerolog.Logger) *Scheduler {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
		log:  logging.WithComponent(log, "export-scheduler"),
	}
}

// Add registers job on schedule.
func (s *Scheduler) Add(schedule string, job *Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		path, err := job.Run(context.Background())
		switch {
		case err != nil:
			s.log.Error().Err(err).Str("job", job.Name()).Msg("Scheduled export failed")
		case path == "":
			s.log.Debug().Str("job", job.Name()).Msg("Scheduled export skipped, no data")
		default:
			s.log.Info().Str("job", job.Name()).Str("path", path).Msg("Scheduled export written")
		}
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("Job registered")
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
