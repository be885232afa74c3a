package config

import (
	"encoding/json"
	"fmt"
	"time"

	"pan123/pkg/utils"
)

// settingsRaw is the on-disk form of Settings. Sizes may be a number or a
// human-friendly string, durations are Go duration strings.
type settingsRaw struct {
	DefaultDownloadPath string      `json:"defaultDownloadPath"`
	AskDownloadLocation bool        `json:"askDownloadLocation"`
	BaseURL             string      `json:"baseUrl,omitempty"`
	UploadConcurrency   int         `json:"uploadConcurrency,omitempty"`
	DownloadThreads     int         `json:"downloadThreads,omitempty"`
	MultiThreadCutoff   interface{} `json:"multiThreadCutoff,omitempty"` // Can be string or number
	MetadataTimeout     string      `json:"metadataTimeout,omitempty"`
	PartTimeout         string      `json:"partTimeout,omitempty"`
	WorkerPoolSize      int         `json:"workerPoolSize,omitempty"`
}

func (s Settings) MarshalJSON() ([]byte, error) {
	raw := settingsRaw{
		DefaultDownloadPath: s.DefaultDownloadPath,
		AskDownloadLocation: s.AskDownloadLocation,
		BaseURL:             s.BaseURL,
		UploadConcurrency:   s.UploadConcurrency,
		DownloadThreads:     s.DownloadThreads,
		WorkerPoolSize:      s.WorkerPoolSize,
	}
	if s.MultiThreadCutoff > 0 {
		raw.MultiThreadCutoff = s.MultiThreadCutoff
	}
	if s.MetadataTimeout > 0 {
		raw.MetadataTimeout = s.MetadataTimeout.String()
	}
	if s.PartTimeout > 0 {
		raw.PartTimeout = s.PartTimeout.String()
	}
	return json.Marshal(raw)
}

// UnmarshalJSON merges the document into s, so keys missing from the file
// keep whatever s held before (normally the defaults).
func (s *Settings) UnmarshalJSON(data []byte) error {
	raw := settingsRaw{
		DefaultDownloadPath: s.DefaultDownloadPath,
		AskDownloadLocation: s.AskDownloadLocation,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.DefaultDownloadPath = raw.DefaultDownloadPath
	s.AskDownloadLocation = raw.AskDownloadLocation
	if raw.BaseURL != "" {
		s.BaseURL = raw.BaseURL
	}
	if raw.UploadConcurrency > 0 {
		s.UploadConcurrency = raw.UploadConcurrency
	}
	if raw.DownloadThreads > 0 {
		s.DownloadThreads = raw.DownloadThreads
	}
	if raw.WorkerPoolSize > 0 {
		s.WorkerPoolSize = raw.WorkerPoolSize
	}

	cutoff, err := parseSize(raw.MultiThreadCutoff)
	if err != nil {
		return fmt.Errorf("invalid multiThreadCutoff: %w", err)
	}
	if cutoff > 0 {
		s.MultiThreadCutoff = cutoff
	}

	if s.MetadataTimeout, err = parseDuration(raw.MetadataTimeout, s.MetadataTimeout); err != nil {
		return fmt.Errorf("invalid metadataTimeout: %w", err)
	}
	if s.PartTimeout, err = parseDuration(raw.PartTimeout, s.PartTimeout); err != nil {
		return fmt.Errorf("invalid partTimeout: %w", err)
	}
	return nil
}

func parseSize(v interface{}) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case float64:
		// JSON numbers are parsed as float64
		if v < 0 {
			return 0, fmt.Errorf("negative size %v", v)
		}
		return int64(v), nil
	case string:
		return utils.ParseDataSize(v)
	default:
		return 0, fmt.Errorf("must be a number or string, got %T", v)
	}
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", s)
	}
	return d, nil
}
