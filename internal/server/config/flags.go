package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN, empty for the in-memory registry
//	-s string   JWT HMAC secret key
//	-k string   audit seal key
//	-l string   log level
//	-o string   OTP channel: sms, email or log
//	-t int      OTP code validity, minutes
//	-m int      OTP attempts per code
//	-i int      idle signing session lifetime, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x          archive issued certificates to S3 (use -x=false to disable)
//	-z string   IANA time zone of certificate timestamps
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-w", "-d", "-s", "-k", "-l", "-o", "-t", "-m", "-i",
		"-u", "-p", "-b", "-g", "-e", "-x", "-z",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.AuditKey, "k", config.AuditKey, "audit seal key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.OTPChannel, "o", config.OTPChannel, "OTP channel (sms, email, log)")

	codeTTL := fs.Int("t", int(config.OTPCodeTTL.Minutes()), "OTP code validity (in minutes)")
	fs.IntVar(&config.OTPMaxAttempts, "m", config.OTPMaxAttempts, "OTP attempts per code")
	idleTTL := fs.Int("i", int(config.SessionIdleTTL.Minutes()), "signing session idle lifetime (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.ArchiveCertificates, "x", config.ArchiveCertificates, "archive certificates to S3")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "certificate time zone")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OTPCodeTTL = time.Duration(*codeTTL) * time.Minute
	config.SessionIdleTTL = time.Duration(*idleTTL) * time.Minute
}
