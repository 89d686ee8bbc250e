package pathutils

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	ledgerFileNameConstant      = "last_updated.json"
	backupDirectoryNameConstant = "backup"
)

// DataDirectory returns the application's directory under the XDG data home.
func DataDirectory(applicationName string) string {
	return filepath.Join(xdg.DataHome, applicationName)
}

// DefaultLedgerPath returns the default location of the update ledger file.
func DefaultLedgerPath(applicationName string) string {
	return filepath.Join(DataDirectory(applicationName), ledgerFileNameConstant)
}

// DefaultBackupRoot returns the default directory holding mirrored working copies.
func DefaultBackupRoot(applicationName string) string {
	return filepath.Join(DataDirectory(applicationName), backupDirectoryNameConstant)
}
