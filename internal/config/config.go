// Package config loads the settings of the command line tool from an
// optional configuration file, CONTAINERS_* environment variables and
// explicit overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omencyber/containers/internal/logger"
	"github.com/omencyber/containers/report"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when looking up environment variables,
// e.g. decode.workers is read from CONTAINERS_DECODE_WORKERS.
const EnvPrefix = "CONTAINERS"

const (
	KeyFormat   = "output.format"
	KeyDir      = "output.dir"
	KeyTimezone = "output.timezone"
	KeyWorkers  = "decode.workers"
	KeyMaxSize  = "decode.max_size"
	KeyDomain   = "filter.domain"
	KeyProgress = "progress"
)

const (
	workersLower = 1
	workersUpper = 64
	maxSizeLower = 1024
	maxSizeUpper = 4 * 1024 * 1024 * 1024
)

// ErrInvalid is returned by Load when at least one entry was rejected.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	Format   report.Format
	Dir      string
	Location *time.Location
	Workers  uint32
	MaxSize  uint64
	Filter   *regexp.Regexp
	Progress bool
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyFormat, "json")
	v.SetDefault(KeyDir, "")
	v.SetDefault(KeyTimezone, "UTC")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyMaxSize, "1G")
	v.SetDefault(KeyDomain, "")
	v.SetDefault(KeyProgress, false)
}

// Load resolves the configuration. The file at path is optional; when given
// it is read through fs and its type is taken from the extension. Overrides
// win over both the file and the environment. Every rejected entry is logged
// and Load fails if there was at least one.
func Load(fs afero.Fs, path string, overrides map[string]interface{}, log logger.Logger) (*Config, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	v := viper.New()
	v.SetFs(fs)
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ReadInConfig %s -> %w", path, err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	var rejected int

	rejected += parseFormat(v, &cfg.Format, KeyFormat, log)
	rejected += parseString(v, &cfg.Dir, KeyDir)
	rejected += parseLocation(v, &cfg.Location, KeyTimezone, log)
	rejected += parseInt(v, &cfg.Workers, KeyWorkers, workersLower, workersUpper, log)
	rejected += parseSize(v, &cfg.MaxSize, KeyMaxSize, maxSizeLower, maxSizeUpper, log)
	rejected += parseRegexp(v, &cfg.Filter, KeyDomain, log)
	cfg.Progress = v.GetBool(KeyProgress)

	if rejected > 0 {
		return nil, fmt.Errorf("Load -> %w: %d entries rejected", ErrInvalid, rejected)
	}

	return &cfg, nil
}

func parseString(v *viper.Viper, s *string, key string) int {
	*s = v.GetString(key)

	return 0 // 0 = success
}

func parseFormat(v *viper.Viper, f *report.Format, key string, log logger.Logger) int {
	s := v.GetString(key)

	format, err := report.ParseFormat(s)
	if err != nil {
		log.Error("Variable %s: %s", key, err)
		return 1
	}

	*f = format

	return 0 // 0 = success
}

func parseLocation(v *viper.Viper, loc **time.Location, key string, log logger.Logger) int {
	s := v.GetString(key)
	if s == "" {
		log.Error("Configuration entry for '%s' missing or empty", key)
		return 1
	}

	l, err := time.LoadLocation(s)
	if err != nil {
		log.Error("Cannot parse variable %s: '%s'", key, s)
		return 1
	}

	*loc = l

	return 0 // 0 = success
}

func parseInt(v *viper.Viper, i *uint32, key string, lower uint32, upper uint32, log logger.Logger) int {
	s := strings.TrimSpace(v.GetString(key))

	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		log.Error("Cannot parse variable %s: '%s'", key, s)
		return 1
	}

	*i = uint32(n)

	if *i < lower || *i > upper {
		log.Error("Variable %s out of bounds (%d), must be between %d and %d",
			key, *i, lower, upper)
		return 1
	}

	return 0 // 0 = success
}

func parseSize(v *viper.Viper, i *uint64, key string, lower uint64, upper uint64, log logger.Logger) int {
	s := v.GetString(key)
	if s == "" {
		log.Error("Configuration entry for '%s' missing or empty", key)
		return 1
	}
	multiplier := uint64(1)

	s = strings.ToUpper(strings.TrimSpace(s))
	if strings.HasSuffix(s, "K") {
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	} else if strings.HasSuffix(s, "M") {
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	} else if strings.HasSuffix(s, "G") {
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	}

	size, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		log.Error("Cannot parse variable %s: '%s'", key, s)
		return 1
	}

	*i = size * multiplier

	if *i < lower || *i > upper {
		log.Error("Variable %s out of bounds (%d), must be between %d and %d",
			key, *i, lower, upper)
		return 1
	}

	return 0 // 0 = success
}

func parseRegexp(v *viper.Viper, re **regexp.Regexp, key string, log logger.Logger) int {
	s := v.GetString(key)
	if s == "" {
		*re = nil
		return 0
	}

	compiled, err := regexp.Compile(s)
	if err != nil {
		log.Error("Cannot parse variable %s: %s", key, err)
		return 1
	}

	*re = compiled

	return 0 // 0 = success
}
