package cfg

import "sync"

type Cfg struct {
	ConfigPath        string
	BindAddress       string
	TimeOffset        int // whole hours east of UTC, -24..24
	ScannerCountLimit int
	Debug             bool
	Version           string

	mu      sync.RWMutex
	dataDir string
}

// DataDir returns the current ingestion root. It is the only option that
// can change at runtime (via set_data_dir).
func (c *Cfg) DataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataDir
}

// SetDataDir updates the ingestion root and persists the configuration file.
func (c *Cfg) SetDataDir(dir string) error {
	c.mu.Lock()
	c.dataDir = dir
	c.mu.Unlock()
	return c.Save()
}
