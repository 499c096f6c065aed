// Package util holds small helpers shared across packages: log-safe body
// truncation and file-path validation for reply files.
package util
