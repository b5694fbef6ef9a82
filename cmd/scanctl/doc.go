// Command scanctl is an operator tool for the photokeep catalog.
//
// It runs against the same catalog database and library root as the
// photokeep service, configured through the same environment variables
// (LIBRARY_DIR, DATA_DIR, THUMBNAIL_DIR).
//
// Commands:
//
//	scan    Run a single synchronous scan and print the summary.
//	        Useful for cron-driven setups and for forcing a re-scan
//	        without restarting the service. Fails with a non-zero exit
//	        status when the scan fails or another scan holds the guard.
//	status  Print catalog counts and the last recorded scan summary.
package main
