// Package utils exposes reusable helpers consumed by the repomirror commands.
//
// ConfigurationLoader layers the embedded defaults, an optional YAML file, and
// REPOMIRROR_* environment variables through Viper. LoggerFactory builds zap
// loggers in structured or console form, and CommandContextAccessor carries the
// configuration path and run identifier through cobra command contexts.
package utils
