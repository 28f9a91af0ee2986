package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Files inside a profile directory.
const (
	ProfileFile = "profile.toml"
	EnvFile     = ".env"
)

// Environment variables that override profile.toml.
const (
	EnvToken      = "GCHAT_TOKEN"
	EnvAPIBaseURL = "GCHAT_API_BASE_URL"
	EnvSocketURL  = "GCHAT_SOCKET_URL"
	EnvUserID     = "GCHAT_USER_ID"
)

// Defaults.
const (
	DefaultPageSize        = 100
	DefaultRequestTimeout  = 15 * time.Second
	DefaultUploadChunkSize = 5 << 20
)

// Duration is a time.Duration written as "15s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Profile is the per-profile settings file plus secrets from .env.
type Profile struct {
	APIBaseURL      string   `toml:"api_base_url"`
	SocketURL       string   `toml:"socket_url"`
	UserID          int64    `toml:"user_id"`
	Username        string   `toml:"username"`
	PageSize        int      `toml:"page_size"`
	RequestTimeout  Duration `toml:"request_timeout"`
	AdminAddr       string   `toml:"admin_addr"`
	UploadChunkSize int64    `toml:"upload_chunk_size"`

	// Token is the opaque bearer token. It is never written to profile.toml.
	Token string `toml:"-"`
}

// LoadProfile reads dir/profile.toml and dir/.env, then applies environment
// overrides and defaults. Missing files are not an error.
func LoadProfile(dir string) (*Profile, error) {
	p := &Profile{}

	path := filepath.Join(dir, ProfileFile)
	if _, err := toml.DecodeFile(path, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	envPath := filepath.Join(dir, EnvFile)
	secrets, err := godotenv.Read(envPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envPath, err)
	}
	p.Token = secrets[EnvToken]

	if err := p.applyEnv(); err != nil {
		return nil, err
	}
	p.applyDefaults()
	return p, nil
}

func (p *Profile) applyEnv() error {
	if v := os.Getenv(EnvToken); v != "" {
		p.Token = v
	}
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		p.APIBaseURL = v
	}
	if v := os.Getenv(EnvSocketURL); v != "" {
		p.SocketURL = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUserID, err)
		}
		p.UserID = id
	}
	return nil
}

func (p *Profile) applyDefaults() {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.RequestTimeout.Duration <= 0 {
		p.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if p.UploadChunkSize <= 0 {
		p.UploadChunkSize = DefaultUploadChunkSize
	}
}

// Validate reports the first setting the daemon cannot run without.
func (p *Profile) Validate() error {
	switch {
	case p.APIBaseURL == "":
		return fmt.Errorf("api_base_url is not set")
	case p.SocketURL == "":
		return fmt.Errorf("socket_url is not set")
	case p.UserID <= 0:
		return fmt.Errorf("user_id is not set")
	}
	return nil
}

// SaveProfile writes the non-secret settings to dir/profile.toml.
func SaveProfile(dir string, p *Profile) error {
	return Save(filepath.Join(dir, ProfileFile), p)
}
