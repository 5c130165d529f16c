package whatfile

import (
	"strings"

	"github.com/gobeaver/beaver-kit/config"

	"github.com/gobeaver/whatfile/detector"
)

type Config struct {
	// Detection limits
	PrefixSize    int `env:"WHATFILE_PREFIX_SIZE,default:4096"`
	MaxBuffer     int `env:"WHATFILE_MAX_BUFFER,default:1048576"`
	MaxZipEntries int `env:"WHATFILE_MAX_ZIP_ENTRIES,default:10000"`
	MaxBoxes      int `env:"WHATFILE_MAX_BOXES,default:1024"`
	MaxDirSectors int `env:"WHATFILE_MAX_DIR_SECTORS,default:256"`

	// Batch inspection
	Workers int `env:"WHATFILE_WORKERS,default:4"`

	// Checksum algorithm added to reports (md5, sha1, sha256, sha512, crc32, xxhash); empty disables
	Checksum string `env:"WHATFILE_CHECKSUM"`

	// Fallback enables the mimetype based detector after the built-in chain
	Fallback bool `env:"WHATFILE_FALLBACK,default:false"`

	// Logging
	LogLevel string `env:"WHATFILE_LOG_LEVEL,default:NOTICE"`
	JSONLog  bool   `env:"WHATFILE_JSON_LOG,default:false"`

	// File selection, comma-separated glob patterns
	Include string `env:"WHATFILE_INCLUDE"`
	Exclude string `env:"WHATFILE_EXCLUDE"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigWithPrefix loads config from environment variables under a custom prefix
func GetConfigWithPrefix(prefix string) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Limits converts the config into detector limits. Zero values fall back to
// the detector defaults.
func (c *Config) Limits() detector.Limits {
	return detector.Limits{
		PrefixSize:    c.PrefixSize,
		MaxBuffer:     c.MaxBuffer,
		MaxZipEntries: c.MaxZipEntries,
		MaxBoxes:      c.MaxBoxes,
		MaxDirSectors: c.MaxDirSectors,
	}
}

// IncludePatterns returns the include globs
func (c *Config) IncludePatterns() []string {
	return splitList(c.Include)
}

// ExcludePatterns returns the exclude globs
func (c *Config) ExcludePatterns() []string {
	return splitList(c.Exclude)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
