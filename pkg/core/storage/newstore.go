package storage

import (
	"fmt"

	"github.com/neogo-core/node/pkg/core/storage/dbconfig"
)

// NewStore opens the Store selected by cfg.Type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	switch cfg.Type {
	case dbconfig.InMemoryDB, "":
		return NewMemoryStore(), nil
	case dbconfig.BoltDB:
		return NewBoltStore(cfg.BoltDBOptions.FilePath)
	case dbconfig.LevelDB:
		return NewLevelDBStore(cfg.LevelDBOptions.DataDirectoryPath)
	default:
		return nil, fmt.Errorf("storage: unknown store type %q", cfg.Type)
	}
}
