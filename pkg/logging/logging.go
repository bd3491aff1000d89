// Package logging holds the one shared logger used by the compressor,
// decompressor, and HTTP service for structured progress and error
// reporting, grounded on _examples/zcash-lightwalletd/common/logging's use
// of a single package-level *logrus.Logger rather than per-call-site
// log.Printf.
package logging

import "github.com/sirupsen/logrus"

var log = logrus.New()

// L returns the shared logger.
func L() *logrus.Logger {
	return log
}

// SetLevel adjusts the shared logger's verbosity, e.g. from config.
func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}
