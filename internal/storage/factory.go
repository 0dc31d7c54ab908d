package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/storage/badger"
)

// NewArchive opens the completed-job archive when enabled. Returns nil when
// archiving is disabled; callers treat a nil archive as a no-op sidecar.
func NewArchive(logger arbor.ILogger, config *common.Config) (interfaces.ArchiveStorage, error) {
	if !config.Storage.Badger.Enabled {
		logger.Debug().Msg("Job archive disabled")
		return nil, nil
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return badger.NewArchive(db, logger), nil
}
