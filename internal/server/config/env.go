package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "COMMUNITY_"

// parseEnv overlays Config with COMMUNITY_* environment variables.
//
// When -env points at a file, it is loaded first with godotenv and a
// missing file is fatal. Otherwise ./.env is loaded if present. Variables
// already set in the process environment always win over the file.
//
// Durations accept time.ParseDuration syntax ("168h", "15m").
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envDuration(&config.GracePeriod, "GRACE_PERIOD")
	envDuration(&config.SweepInterval, "SWEEP_INTERVAL")
	envBool(&config.SweepOnStart, "SWEEP_ON_START")
	envInt(&config.BcryptCost, "BCRYPT_COST")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}
