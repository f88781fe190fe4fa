package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "STUDIOSIGN_"

// parseEnv loads the dotenv file named by -env (".env" by default, a
// missing file is ignored) and overlays STUDIOSIGN_* variables. Variables
// already set in the process environment win over the file. Malformed
// numbers or durations panic.
func parseEnv(config *Config) {
	if err := godotenv.Load(flagx.EnvFileFlags()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			}
			*dst = n
		}
	}

	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("AUDIT_KEY", &config.AuditKey)
	str("LOG_LEVEL", &config.LogLevel)
	str("OTP_CHANNEL", &config.OTPChannel)
	dur("OTP_CODE_TTL", &config.OTPCodeTTL)
	num("OTP_MAX_ATTEMPTS", &config.OTPMaxAttempts)
	dur("SESSION_IDLE_TTL", &config.SessionIdleTTL)
	str("SMS_GATEWAY_URL", &config.SMSGatewayURL)
	str("SMS_API_KEY", &config.SMSAPIKey)
	str("SMS_SENDER", &config.SMSSender)
	str("SENDGRID_API_KEY", &config.SendGridAPIKey)
	str("EMAIL_FROM", &config.EmailFrom)
	str("EMAIL_FROM_NAME", &config.EmailFromName)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("TIMEZONE", &config.Timezone)

	if v, ok := os.LookupEnv(EnvPrefix + "ARCHIVE_CERTIFICATES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%sARCHIVE_CERTIFICATES: %w", EnvPrefix, err))
		}
		config.ArchiveCertificates = b
	}
}
