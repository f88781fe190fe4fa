package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/studiosign/internal/flagx"
	"github.com/dmitrijs2005/studiosign/internal/timex"
)

// JsonConfig is the shape of the optional JSON configuration file.
// Durations accept both strings such as "10m" and integer nanoseconds.
// Absent keys leave the current values untouched.
type JsonConfig struct {
	EndpointAddrGRPC    string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP    string          `json:"endpoint_addr_http"`
	DatabaseDSN         *string         `json:"database_dsn"`
	SecretKey           string          `json:"secret_key"`
	AuditKey            string          `json:"audit_key"`
	LogLevel            string          `json:"log_level"`
	OTPChannel          string          `json:"otp_channel"`
	OTPCodeTTL          *timex.Duration `json:"otp_code_ttl"`
	OTPMaxAttempts      *int            `json:"otp_max_attempts"`
	SessionIdleTTL      *timex.Duration `json:"session_idle_ttl"`
	SMSGatewayURL       string          `json:"sms_gateway_url"`
	SMSAPIKey           string          `json:"sms_api_key"`
	SMSSender           string          `json:"sms_sender"`
	SendGridAPIKey      string          `json:"sendgrid_api_key"`
	EmailFrom           string          `json:"email_from"`
	EmailFromName       string          `json:"email_from_name"`
	ArchiveCertificates *bool           `json:"archive_certificates"`
	S3RootUser          string          `json:"s3_root_user"`
	S3RootPassword      string          `json:"s3_root_password"`
	S3Bucket            string          `json:"s3_bucket"`
	S3Region            string          `json:"s3_region"`
	S3BaseEndpoint      string          `json:"s3_base_endpoint"`
	Timezone            string          `json:"timezone"`
}

// parseJson loads the file given with -c or -config, if any, into config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.SecretKey, c.SecretKey)
	set(&config.AuditKey, c.AuditKey)
	set(&config.LogLevel, c.LogLevel)
	set(&config.OTPChannel, c.OTPChannel)
	set(&config.SMSGatewayURL, c.SMSGatewayURL)
	set(&config.SMSAPIKey, c.SMSAPIKey)
	set(&config.SMSSender, c.SMSSender)
	set(&config.SendGridAPIKey, c.SendGridAPIKey)
	set(&config.EmailFrom, c.EmailFrom)
	set(&config.EmailFromName, c.EmailFromName)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.Timezone, c.Timezone)

	// zero values are meaningful for these
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.OTPCodeTTL != nil {
		config.OTPCodeTTL = c.OTPCodeTTL.Duration
	}
	if c.OTPMaxAttempts != nil {
		config.OTPMaxAttempts = *c.OTPMaxAttempts
	}
	if c.SessionIdleTTL != nil {
		config.SessionIdleTTL = c.SessionIdleTTL.Duration
	}
	if c.ArchiveCertificates != nil {
		config.ArchiveCertificates = *c.ArchiveCertificates
	}
}
