// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with lifecycle logging, turning non-zero
// exit codes into CommandFailedError values. OSCommandRunner is the default
// runner backed by os/exec; it can stream the merged output of a long-running
// process to a writer while still buffering it for the caller. Log messages
// never include credentials embedded in remote URLs.
package execshell
