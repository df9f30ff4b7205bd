package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// WithFile applies settings from a TOML file. Keys absent from the file keep
// their current value.
//
//	port = "8080"
//	database_url = "postgres://localhost/sheetmusic"
//	database_type = "postgres"
//
//	[storage]
//	type = "s3"
//	[storage.s3]
//	bucket = "sheet-music"
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return nil
		}
		meta, err := toml.DecodeFile(path, c)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
		}
		return nil
	}
}
