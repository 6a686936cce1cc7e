// Package config loads the immutable process configuration from environment
// variables. The configuration is read once at startup and passed into the
// jobs; nothing reads the environment mid-run.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment variable names. These match the variables the deployment's
// wrapper scripts already export.
const (
	EnvBaseURL  = "BASE_URL"
	EnvUser     = "NEXTCLOUD_USER"
	EnvPassword = "NEXTCLOUD_PASSWORD"
	EnvTimeout  = "NEXTCLOUD_TIMEOUT"

	EnvBackupPath  = "BACKUP_PATH"
	EnvKeepBackups = "KEEP_N_BACKUPS"

	EnvHoursTableID       = "HOURS_TABLE_ID"
	EnvNamesTableID       = "NAMES_TABLE_ID"
	EnvFamilyHoursTableID = "FAMILY_HOURS_TABLE_ID"
	EnvKitaYear           = "KITA_YEAR"
	EnvJoinPolicy         = "JOIN_POLICY"

	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultBackupPath  = "./backups"
	DefaultKeepBackups = 2
	DefaultTimeout     = 30 * time.Second
	DefaultJoinPolicy  = "left"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Configuration errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingTableID = errors.New("table ID not configured")
)

// Config holds every setting the jobs need. Credentials are required for
// both jobs; the three table IDs only for the pipeline.
type Config struct {
	BaseURL  string        `validate:"required,url"`
	Username string        `validate:"required"`
	Password string        `validate:"required"`
	Timeout  time.Duration `validate:"gt=0"`

	// Backup job.
	BackupPath  string `validate:"required"`
	KeepBackups int

	// Pipeline job. Zero table IDs mean "not configured".
	HoursTableID       int64
	NamesTableID       int64
	FamilyHoursTableID int64
	KitaYear           int
	JoinPolicy         string `validate:"oneof=left inner"`

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment and applies defaults.
// The result is not validated; call Validate (and ValidatePipeline for the
// pipeline job) before use.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(EnvTimeout, int(DefaultTimeout/time.Second))
	v.SetDefault(EnvBackupPath, DefaultBackupPath)
	v.SetDefault(EnvKeepBackups, DefaultKeepBackups)
	v.SetDefault(EnvKitaYear, DefaultKitaYear(time.Now()))
	v.SetDefault(EnvJoinPolicy, DefaultJoinPolicy)
	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)

	return Config{
		BaseURL:  v.GetString(EnvBaseURL),
		Username: v.GetString(EnvUser),
		Password: v.GetString(EnvPassword),
		Timeout:  time.Duration(v.GetInt(EnvTimeout)) * time.Second,

		BackupPath:  v.GetString(EnvBackupPath),
		KeepBackups: v.GetInt(EnvKeepBackups),

		HoursTableID:       v.GetInt64(EnvHoursTableID),
		NamesTableID:       v.GetInt64(EnvNamesTableID),
		FamilyHoursTableID: v.GetInt64(EnvFamilyHoursTableID),
		KitaYear:           v.GetInt(EnvKitaYear),
		JoinPolicy:         v.GetString(EnvJoinPolicy),

		LogLevel:  v.GetString(EnvLogLevel),
		LogFormat: v.GetString(EnvLogFormat),
	}
}

// validate is shared; validator instances are safe for concurrent reuse.
var validate = validator.New()

// Validate checks the settings every job needs: base URL, credentials,
// timeout, backup path, join policy.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return fmt.Errorf("%w: field %s fails %q", ErrInvalidConfig, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ValidatePipeline checks the settings only the pipeline job needs on top
// of Validate.
func (c Config) ValidatePipeline() error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, t := range []struct {
		name string
		id   int64
	}{
		{EnvHoursTableID, c.HoursTableID},
		{EnvNamesTableID, c.NamesTableID},
		{EnvFamilyHoursTableID, c.FamilyHoursTableID},
	} {
		if t.id <= 0 {
			return fmt.Errorf("%w: %s", ErrMissingTableID, t.name)
		}
	}
	return nil
}

// DefaultKitaYear returns the Kita year containing now. A Kita year starts
// on 1 September: from September onwards it is the calendar year, before
// that the previous one.
func DefaultKitaYear(now time.Time) int {
	if now.Month() >= time.September {
		return now.Year()
	}
	return now.Year() - 1
}
