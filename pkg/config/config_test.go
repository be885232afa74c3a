package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("PAN123_CONFIG_DIR", "/tmp/pan")
		assert.Equal(t, "/tmp/pan", GetConfigDir())
		assert.Equal(t, "/tmp/pan/config.json", GetConfigPath())
		assert.Equal(t, "/tmp/pan/123pan.log", GetLogPath())
	})

	t.Run("xdg", func(t *testing.T) {
		t.Setenv("PAN123_CONFIG_DIR", "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		assert.Equal(t, filepath.Join("/tmp/xdg", "Qxyz17", "123pan"), GetConfigDir())
	})
}

func TestFileStore_LoadMissingReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config.json"))

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, rec.Authorization)
	assert.True(t, rec.Settings.AskDownloadLocation)
	assert.Equal(t, DefaultBaseURL, rec.Settings.BaseURL)
	assert.Equal(t, DefaultMultiThreadCutoff, rec.Settings.MultiThreadCutoff)
	assert.Equal(t, DefaultWorkerPoolSize, rec.Settings.WorkerPoolSize)
	assert.False(t, rec.HasCredentials())
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	store := NewFileStore(path)

	rec := Default()
	rec.UserName = "13800000000"
	rec.PassWord = "secret"
	rec.Authorization = "Bearer abc"
	rec.DeviceType = "M2001J2E"
	rec.OSVersion = "Android_10"
	rec.Settings.PartTimeout = 90 * time.Second
	require.NoError(t, store.Save(rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
	assert.True(t, loaded.HasCredentials())
}

func TestFileStore_LegacyFileWithoutSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"userName":"u","passWord":"p","authorization":"Bearer t","deviceType":"2013022","osVersion":"Android_9.0"}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	rec, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "u", rec.UserName)
	assert.Equal(t, "2013022", rec.DeviceType)
	assert.Equal(t, DefaultSettings(), rec.Settings)
}

func TestSettings_FlexibleValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"settings":{"defaultDownloadPath":"/data","multiThreadCutoff":"16MiB","metadataTimeout":"15s","uploadConcurrency":4}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	rec, err := NewFileStore(path).Load()
	require.NoError(t, err)
	s := rec.Settings
	assert.Equal(t, "/data", s.DefaultDownloadPath)
	assert.True(t, s.AskDownloadLocation, "missing key keeps default")
	assert.Equal(t, int64(16<<20), s.MultiThreadCutoff)
	assert.Equal(t, 15*time.Second, s.MetadataTimeout)
	assert.Equal(t, DefaultPartTimeout, s.PartTimeout)
	assert.Equal(t, 4, s.UploadConcurrency)
	assert.Equal(t, DefaultDownloadThreads, s.DownloadThreads)

	require.NoError(t, os.WriteFile(path, []byte(`{"settings":{"multiThreadCutoff":4194304}}`), 0600))
	rec, err = NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, int64(4194304), rec.Settings.MultiThreadCutoff)
}

func TestSettings_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad size", `{"settings":{"multiThreadCutoff":"lots"}}`},
		{"bad size type", `{"settings":{"multiThreadCutoff":true}}`},
		{"bad duration", `{"settings":{"partTimeout":"soon"}}`},
		{"negative duration", `{"settings":{"metadataTimeout":"-1s"}}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0600))
			_, err := NewFileStore(path).Load()
			assert.Error(t, err)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	m := &MemoryStore{}
	rec, err := m.Load()
	require.NoError(t, err)
	rec.Authorization = "Bearer x"
	require.NoError(t, m.Save(rec))
	assert.Equal(t, 1, m.Saves)

	again, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "Bearer x", again.Authorization)
}
