// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// environment variables through Viper. LoggerFactory builds zap loggers from
// textual level and format settings, and FlushingWriter keeps streamed output
// of long-running child processes visible as it is produced.
package utils
