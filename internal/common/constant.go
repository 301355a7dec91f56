// Package common contains shared constants and sentinel errors used across
// the account service components.
package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultGracePeriod is how long a deactivated account can still be
// restored by logging in.
const DefaultGracePeriod = 7 * 24 * time.Hour

// DefaultSweepInterval is the cadence of the expired-account purge loop.
const DefaultSweepInterval = 24 * time.Hour

// TokenType is reported alongside issued access tokens.
const TokenType = "Bearer"
