package exitcodes

// Exit codes for the file-reaper commands
// These codes form the operational contract with scripts and operators
const (
	Success       = 0 // Successful execution
	InvalidConfig = 2 // Configuration file invalid, or bad command-line usage
	RuntimeError  = 4 // Runtime error during execution
)
