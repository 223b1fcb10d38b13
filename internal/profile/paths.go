// Package profile lays out the per-profile state directory. A profile is one
// identity on one feed: its message store, image cache, lock and logs.
package profile

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "FEEDCHAT_HOME"

// BaseDir returns $FEEDCHAT_HOME, or ~/.feedchat.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".feedchat")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// DBPath returns the message store path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "feedchat.db")
}

// CacheDir returns the image cache directory.
func CacheDir(name string) string {
	return filepath.Join(Dir(name), "images")
}

// TempDir holds image copies while they upload.
func TempDir(name string) string {
	return filepath.Join(Dir(name), "tmp")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// LogPath returns the log file path.
func LogPath(name string) string {
	return filepath.Join(Dir(name), "logs", "feedchat.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), CacheDir(name), TempDir(name), filepath.Dir(LogPath(name))} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
