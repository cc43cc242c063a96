package scheduler

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/database"
)

// HealthCheckJob verifies database integrity and checkpoint readability.
// Runs every 6 hours.
type HealthCheckJob struct {
	db             *database.DB
	checkpointPath string
	log            zerolog.Logger
}

// NewHealthCheckJob creates a new health check job.
func NewHealthCheckJob(db *database.DB, checkpointPath string, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:             db,
		checkpointPath: checkpointPath,
		log:            log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run checks the application database and the model checkpoint. A missing
// checkpoint is normal before the first training run; a corrupt database
// is reported as an error.
func (j *HealthCheckJob) Run() error {
	var result string
	if err := j.db.QueryRow(`PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check reported: %s", result)
	}

	if info, err := os.Stat(j.checkpointPath); err == nil {
		j.log.Debug().Int64("bytes", info.Size()).Msg("Checkpoint present")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint not readable: %w", err)
	}

	j.log.Debug().Msg("Health check passed")
	return nil
}
