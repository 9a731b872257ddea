// The scanpool command provisions disposable scanning-service accounts and
// rotates through them.
//
// Commands:
//
//	provision - create accounts and persist them to the rotation store
//	scan      - run the scanner with the next account in rotation
//
// Configuration is read from a YAML file (see the config package), overlaid
// with SCANPOOL_* environment variables and command-line flags.
package main
