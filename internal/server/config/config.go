// Package config handles configuration for the server component,
// including defaults, dotenv and environment, JSON overlay, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the studiosign server.
//
// Fields:
//   - EndpointAddrGRPC / EndpointAddrHTTP: bind addresses of the gRPC service and the HTTP download surface.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory registry.
//   - SecretKey: HMAC secret for operator JWTs (HS256). Do not use test defaults in prod.
//   - AuditKey: key of the audit seal, 16 to 64 bytes.
//   - OTPChannel: "sms", "email" or "log".
//   - OTPCodeTTL / OTPMaxAttempts: code hardening, zero disables.
//   - SessionIdleTTL: idle signing sessions are discarded after this long.
//   - S3*: certificate archive bucket, used when ArchiveCertificates is set.
//   - Timezone: IANA zone of human-readable certificate timestamps.
type Config struct {
	EndpointAddrGRPC string
	EndpointAddrHTTP string
	DatabaseDSN      string
	SecretKey        string
	AuditKey         string
	LogLevel         string

	OTPChannel     string
	OTPCodeTTL     time.Duration
	OTPMaxAttempts int
	SessionIdleTTL time.Duration

	SMSGatewayURL  string
	SMSAPIKey      string
	SMSSender      string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	ArchiveCertificates bool
	S3RootUser          string
	S3RootPassword      string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string

	Timezone string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AuditKey = "dev-audit-key-change-me"
	c.LogLevel = "info"
	c.OTPChannel = "log"
	c.OTPCodeTTL = 10 * time.Minute
	c.OTPMaxAttempts = 5
	c.SessionIdleTTL = 30 * time.Minute
	c.EmailFromName = "Studio"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "certificates"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.Timezone = "Europe/Rome"
}

// LoadConfig builds a Config by applying defaults, then the dotenv file and
// environment, then an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
