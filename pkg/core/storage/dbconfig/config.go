// Package dbconfig holds the on-disk store backend selector and its
// per-backend options (spec.md §3 "Storage backend" is backend-agnostic;
// this config picks which concrete Store a deployment runs).
package dbconfig

const (
	// BoltDB selects the bbolt-backed Store.
	BoltDB = "boltdb"
	// LevelDB selects the goleveldb-backed Store.
	LevelDB = "leveldb"
	// InMemoryDB selects the in-memory Store.
	InMemoryDB = "inmemory"
)

// LevelDBOptions configures the LevelDB backend.
type LevelDBOptions struct {
	DataDirectoryPath string `yaml:"DataDirectoryPath"`
}

// BoltDBOptions configures the BoltDB backend.
type BoltDBOptions struct {
	FilePath string `yaml:"FilePath"`
}

// DBConfiguration selects and configures one storage backend.
type DBConfiguration struct {
	Type           string         `yaml:"Type"`
	LevelDBOptions LevelDBOptions `yaml:"LevelDBOptions"`
	BoltDBOptions  BoltDBOptions  `yaml:"BoltDBOptions"`
}
