package store

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/scanpool/scanpool/interfaces"
)

// BackendFor creates a store backend from a location string.
//
// Supported forms:
//   - plain paths ("accounts.txt", "/var/lib/scanpool/accounts.json")
//   - file:// - local filesystem storage
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=us-west-2&endpoint=custom.s3.com
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func BackendFor(location string, log *slog.Logger) (interfaces.StoreBackend, error) {
	if location == "" {
		return nil, errors.New("empty store location")
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		// Bare paths, including relative ones like "accounts.txt".
		return NewFileBackend(location, log)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return createFileBackend(u, log)
	case "s3":
		return createS3Backend(u, log)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", u.Scheme)
	}
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path or file://./relative/path
func createFileBackend(u *url.URL, log *slog.Logger) (interfaces.StoreBackend, error) {
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileBackend(path, log)
}

// createS3Backend creates an S3 or S3-compatible storage backend. Credentials
// may be embedded in the URI; prefer the AWS environment for anything shared.
func createS3Backend(u *url.URL, log *slog.Logger) (interfaces.StoreBackend, error) {
	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("missing bucket in S3 URI: %s", u.String())
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, fmt.Errorf("missing object key in S3 URI: %s", u.String())
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		log.Debug("Using embedded credentials for S3 access")
	}

	return NewS3Backend(bucketName, key, region, endpoint, accessKey, secretKey, log)
}
