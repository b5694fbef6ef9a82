// Package logging provides leveled logging for photokeep.
//
// The log level is read from the LOG_LEVEL environment variable
// (debug, info, warn, error) and defaults to info. Setting DEBUG=1
// forces debug logging regardless of LOG_LEVEL.
package logging
