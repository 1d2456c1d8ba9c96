// Package config reads editfixture settings from EDITFIXTURE_* environment
// variables.
//
//	EDITFIXTURE_SOURCE_DRIVER: sqlite|postgres|blob (default sqlite)
//	EDITFIXTURE_SQLITE_PATH: path to the sqlite fixture database (default ./editfixture.db)
//	EDITFIXTURE_POSTGRES_DSN: postgres DSN when the source driver is postgres
//	EDITFIXTURE_BLOB_DRIVER: fs|s3|memory (default fs)
//	EDITFIXTURE_BLOB_FS_ROOT: root directory for the fs blob driver
//	EDITFIXTURE_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PREFIX, _PATH_STYLE,
//	_ACCESS_KEY_ID, _SECRET_ACCESS_KEY, _SESSION_TOKEN: s3 blob driver
//	EDITFIXTURE_LOG_LEVEL: zerolog level name (default info)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"editfixture/internal/blob"

	"github.com/rs/zerolog"
)

// SourceDriver identifies where fixture bundles are read from.
type SourceDriver string

const (
	SourceSQLite   SourceDriver = "sqlite"   // embedded sqlite file
	SourcePostgres SourceDriver = "postgres" // PostgreSQL server
	SourceBlob     SourceDriver = "blob"     // JSON documents in the blob store
)

const envPrefix = "EDITFIXTURE_"

// Config is the resolved process configuration.
type Config struct {
	SourceDriver SourceDriver
	SQLitePath   string
	PostgresDSN  string
	Blob         blob.Config
	LogLevel     zerolog.Level
}

// FromEnv reads the process environment.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads configuration through lookup, which has the signature of
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(name string) string {
		v, _ := lookup(envPrefix + name)
		return strings.TrimSpace(v)
	}
	cfg := Config{
		SourceDriver: SourceDriver(strings.ToLower(get("SOURCE_DRIVER"))),
		SQLitePath:   get("SQLITE_PATH"),
		PostgresDSN:  get("POSTGRES_DSN"),
		Blob: blob.Config{
			Driver: blob.Driver(strings.ToLower(get("BLOB_DRIVER"))),
			FSRoot: get("BLOB_FS_ROOT"),
			S3: blob.S3Config{
				Bucket:          get("BLOB_S3_BUCKET"),
				Region:          get("BLOB_S3_REGION"),
				Endpoint:        get("BLOB_S3_ENDPOINT"),
				Prefix:          get("BLOB_S3_PREFIX"),
				AccessKeyID:     get("BLOB_S3_ACCESS_KEY_ID"),
				SecretAccessKey: get("BLOB_S3_SECRET_ACCESS_KEY"),
				SessionToken:    get("BLOB_S3_SESSION_TOKEN"),
			},
		},
		LogLevel: zerolog.InfoLevel,
	}
	switch cfg.SourceDriver {
	case "":
		cfg.SourceDriver = SourceSQLite
	case SourceSQLite, SourcePostgres, SourceBlob:
	default:
		return Config{}, fmt.Errorf("unknown source driver %q", cfg.SourceDriver)
	}
	switch cfg.Blob.Driver {
	case "":
		cfg.Blob.Driver = blob.DriverFilesystem
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
	if raw := get("BLOB_S3_PATH_STYLE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%sBLOB_S3_PATH_STYLE: %w", envPrefix, err)
		}
		cfg.Blob.S3.PathStyle = v
	}
	if raw := get("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return Config{}, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}
