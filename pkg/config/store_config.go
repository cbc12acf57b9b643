package config

// StoreConfig selects the ledger's key-value backend
type StoreConfig struct {
	Backend    string `yaml:"backend"`     // memory, sqlite, rqlite
	SQLitePath string `yaml:"sqlite_path"` // relative paths live under node.data_dir
	RQLiteURL  string `yaml:"rqlite_url"`  // e.g. http://localhost:5001
	Namespace  string `yaml:"namespace"`   // table namespace, lets several ledgers share a database
}

// KeyStoreConfig selects where chatctl keeps the local box key pairs. It is
// never replicated.
type KeyStoreConfig struct {
	Backend    string `yaml:"backend"` // memory, sqlite
	SQLitePath string `yaml:"sqlite_path"`
}
