// Package medrag holds application-wide defaults shared by config and wiring.
package medrag

const (
	DefaultAppName      = "medrag"
	DefaultConfigPath   = "/etc/medrag"
	DefaultDatabasePath = "data/medrag.db"
)
