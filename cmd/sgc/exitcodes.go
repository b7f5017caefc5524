package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid values)
	ExitAborted     = 3 // Crawl aborted at an anti-bot checkpoint
)
