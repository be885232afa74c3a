package config

import (
	"os"
	"path/filepath"
	"time"

	"pan123/pkg/utils"
)

// Defaults applied to settings that are absent from the config file.
const (
	DefaultBaseURL           = "https://www.123pan.com"
	DefaultUploadConcurrency = 1
	DefaultDownloadThreads   = 8
	DefaultMultiThreadCutoff = 2 * utils.MegaByte
	DefaultMetadataTimeout   = 30 * time.Second
	DefaultPartTimeout       = 60 * time.Second
	DefaultWorkerPoolSize    = 64
)

// Record is the persisted credential/config record. Key names match the
// config.json written by earlier desktop releases so existing files load
// unchanged.
type Record struct {
	UserName      string   `json:"userName"`
	PassWord      string   `json:"passWord"`
	Authorization string   `json:"authorization"`
	DeviceType    string   `json:"deviceType"`
	OSVersion     string   `json:"osVersion"`
	Settings      Settings `json:"settings"`
}

// Settings holds user preferences and engine tuning.
type Settings struct {
	DefaultDownloadPath string
	AskDownloadLocation bool
	BaseURL             string
	UploadConcurrency   int
	DownloadThreads     int
	MultiThreadCutoff   int64
	MetadataTimeout     time.Duration
	PartTimeout         time.Duration
	WorkerPoolSize      int
}

// Default returns a record with empty credentials and default settings.
func Default() *Record {
	return &Record{Settings: DefaultSettings()}
}

// DefaultSettings returns the settings used when the file has none.
func DefaultSettings() Settings {
	downloads := "Downloads"
	if home, err := os.UserHomeDir(); err == nil {
		downloads = filepath.Join(home, "Downloads")
	}
	return Settings{
		DefaultDownloadPath: downloads,
		AskDownloadLocation: true,
		BaseURL:             DefaultBaseURL,
		UploadConcurrency:   DefaultUploadConcurrency,
		DownloadThreads:     DefaultDownloadThreads,
		MultiThreadCutoff:   DefaultMultiThreadCutoff,
		MetadataTimeout:     DefaultMetadataTimeout,
		PartTimeout:         DefaultPartTimeout,
		WorkerPoolSize:      DefaultWorkerPoolSize,
	}
}

// HasCredentials reports whether a sign-in can be attempted.
func (r *Record) HasCredentials() bool {
	return r.UserName != "" && r.PassWord != ""
}
