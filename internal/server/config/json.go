package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
	"github.com/dmitrijs2005/filekeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding; durations accept "15m" style
// strings. Empty values leave the corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"jwt_secret"`
	RefreshTokenSecret           string         `json:"jwt_refresh_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHashCost             int            `json:"bcrypt_cost"`
	StorageBackend               string         `json:"storage_backend"`
	UploadDir                    string         `json:"upload_dir"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LogFormat                    string         `json:"log_format"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays Config with the JSON file named by -c/-config. Nothing
// happens when the flag is absent; an unreadable or malformed file panics.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogFormat, c.LogFormat)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.PasswordHashCost != 0 {
		config.PasswordHashCost = c.PasswordHashCost
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
