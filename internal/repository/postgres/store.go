package postgres

import (
	"database/sql"

	"github.com/alignmentlab/secret-agi/internal/repository"
)

// NewStore wires every repository and the coordinator over one
// connection pool.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Games:     NewGameRepo(db),
		Players:   NewPlayerRepo(db),
		States:    NewStateRepo(db),
		Actions:   NewActionRepo(db),
		Events:    NewEventRepo(db),
		Chat:      NewChatRepo(db),
		Metrics:   NewMetricsRepo(db),
		Analytics: NewAnalyticsRepo(db),
		Tx:        NewCoordinator(db),
	}
}
