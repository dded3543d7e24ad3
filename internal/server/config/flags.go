package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   access token secret
//	-k string   refresh token secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-o string   storage backend: local | s3
//	-f string   upload directory for local storage
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   log format: json | zap
//
// Only the flags above are taken from os.Args, so -c/-config can coexist.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-r", "-o", "-f", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "k", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.StorageBackend, "o", config.StorageBackend, "storage backend (local|s3)")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t and -r only apply when given; otherwise earlier sources stand.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
