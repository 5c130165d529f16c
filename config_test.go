package whatfile

import (
	"os"
	"testing"

	"github.com/gobeaver/whatfile/detector"
)

func TestGetConfig(t *testing.T) {
	defaults := Config{
		PrefixSize:    4096,
		MaxBuffer:     1048576,
		MaxZipEntries: 10000,
		MaxBoxes:      1024,
		MaxDirSectors: 256,
		Workers:       4,
		LogLevel:      "NOTICE",
	}

	tests := []struct {
		name    string
		envVars map[string]string
		want    func(c *Config)
	}{
		{
			name:    "default values",
			envVars: map[string]string{},
			want:    func(c *Config) {},
		},
		{
			name: "detection limits",
			envVars: map[string]string{
				"BEAVER_WHATFILE_PREFIX_SIZE":     "8192",
				"BEAVER_WHATFILE_MAX_BUFFER":      "65536",
				"BEAVER_WHATFILE_MAX_ZIP_ENTRIES": "50",
				"BEAVER_WHATFILE_MAX_BOXES":       "64",
				"BEAVER_WHATFILE_MAX_DIR_SECTORS": "8",
			},
			want: func(c *Config) {
				c.PrefixSize = 8192
				c.MaxBuffer = 65536
				c.MaxZipEntries = 50
				c.MaxBoxes = 64
				c.MaxDirSectors = 8
			},
		},
		{
			name: "inspection options",
			envVars: map[string]string{
				"BEAVER_WHATFILE_WORKERS":   "16",
				"BEAVER_WHATFILE_CHECKSUM":  "sha256",
				"BEAVER_WHATFILE_FALLBACK":  "true",
				"BEAVER_WHATFILE_LOG_LEVEL": "DEBUG",
				"BEAVER_WHATFILE_JSON_LOG":  "true",
			},
			want: func(c *Config) {
				c.Workers = 16
				c.Checksum = "sha256"
				c.Fallback = true
				c.LogLevel = "DEBUG"
				c.JSONLog = true
			},
		},
		{
			name: "file selection",
			envVars: map[string]string{
				"BEAVER_WHATFILE_INCLUDE": "*.jpg,*.png",
				"BEAVER_WHATFILE_EXCLUDE": ".*",
			},
			want: func(c *Config) {
				c.Include = "*.jpg,*.png"
				c.Exclude = ".*"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				t.Cleanup(func() { os.Unsetenv(k) })
			}

			cfg, err := GetConfig()
			if err != nil {
				t.Fatalf("GetConfig() error = %v", err)
			}

			want := defaults
			tt.want(&want)
			if *cfg != want {
				t.Errorf("GetConfig() = %+v, want %+v", *cfg, want)
			}
		})
	}
}

func TestConfig_Limits(t *testing.T) {
	cfg := &Config{PrefixSize: 1024, MaxBuffer: 2048, MaxZipEntries: 3, MaxBoxes: 4, MaxDirSectors: 5}
	want := detector.Limits{PrefixSize: 1024, MaxBuffer: 2048, MaxZipEntries: 3, MaxBoxes: 4, MaxDirSectors: 5}
	if got := cfg.Limits(); got != want {
		t.Errorf("Limits() = %+v, want %+v", got, want)
	}
}

func TestConfig_Patterns(t *testing.T) {
	cfg := &Config{Include: " *.jpg , ,*.png,", Exclude: ""}

	inc := cfg.IncludePatterns()
	if len(inc) != 2 || inc[0] != "*.jpg" || inc[1] != "*.png" {
		t.Errorf("IncludePatterns() = %q", inc)
	}
	if exc := cfg.ExcludePatterns(); exc != nil {
		t.Errorf("ExcludePatterns() = %q, want nil", exc)
	}
}
