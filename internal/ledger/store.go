package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/temirov/repomirror/internal/repository"
)

const (
	corruptLedgerTemplateConstant        = "ledger %s is unreadable: %v"
	emptyRepositoryKeyMessageConstant    = "empty repository key"
	invalidTimestampTemplateConstant     = "invalid timestamp %q for %s: %w"
	createDirectoryErrorTemplateConstant = "create ledger directory %s: %w"
	createTemporaryErrorTemplateConstant = "create temporary ledger in %s: %w"
	writeTemporaryErrorTemplateConstant  = "write temporary ledger %s: %w"
	syncTemporaryErrorTemplateConstant   = "sync temporary ledger %s: %w"
	closeTemporaryErrorTemplateConstant  = "close temporary ledger %s: %w"
	replaceLedgerErrorTemplateConstant   = "replace ledger %s: %w"
	encodeLedgerErrorTemplateConstant    = "encode ledger: %w"
	temporaryFilePatternConstant         = ".last_updated-*.tmp"
	jsonIndentConstant                   = "  "
	ledgerDirectoryPermissionsConstant   = 0o755
	ledgerTimestampLayoutConstant        = time.RFC3339Nano
)

var errEmptyRepositoryKey = errors.New(emptyRepositoryKeyMessageConstant)

// CorruptLedgerError reports a ledger file that exists but cannot be read or decoded.
type CorruptLedgerError struct {
	Path  string
	Cause error
}

// Error describes the corrupt ledger.
func (corruptError CorruptLedgerError) Error() string {
	return fmt.Sprintf(corruptLedgerTemplateConstant, corruptError.Path, corruptError.Cause)
}

// Unwrap exposes the underlying cause.
func (corruptError CorruptLedgerError) Unwrap() error {
	return corruptError.Cause
}

// Store persists ledgers as JSON objects mapping "owner/name" to RFC 3339 timestamps.
type Store struct {
	fileSystem afero.Fs
}

// NewStore constructs a Store. A nil file system selects the operating system.
func NewStore(fileSystem afero.Fs) *Store {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Store{fileSystem: fileSystem}
}

// Load reads the ledger at path. A missing file yields an empty ledger; any other read or decode failure
// yields CorruptLedgerError.
func (store *Store) Load(path string) (*Ledger, error) {
	contents, readError := afero.ReadFile(store.fileSystem, path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, CorruptLedgerError{Path: path, Cause: readError}
	}

	var document map[string]string
	if decodeError := json.Unmarshal(contents, &document); decodeError != nil {
		return nil, CorruptLedgerError{Path: path, Cause: decodeError}
	}

	loaded := New()
	for repositoryKey, timestampText := range document {
		if len(repositoryKey) == 0 {
			return nil, CorruptLedgerError{Path: path, Cause: errEmptyRepositoryKey}
		}
		lastUpdate, parseError := time.Parse(ledgerTimestampLayoutConstant, timestampText)
		if parseError != nil {
			return nil, CorruptLedgerError{Path: path, Cause: fmt.Errorf(invalidTimestampTemplateConstant, timestampText, repositoryKey, parseError)}
		}
		loaded.Record(repository.Identifier(repositoryKey), lastUpdate)
	}
	return loaded, nil
}

// Save writes the ledger to path atomically: the document goes to a temporary file in the same directory,
// which is synced, closed, and renamed over path. A failed save leaves any previous file intact.
func (store *Store) Save(path string, ledger *Ledger) error {
	encoded, encodeError := Encode(ledger)
	if encodeError != nil {
		return encodeError
	}

	directory := filepath.Dir(path)
	if mkdirError := store.fileSystem.MkdirAll(directory, ledgerDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(createDirectoryErrorTemplateConstant, directory, mkdirError)
	}

	temporaryFile, createError := afero.TempFile(store.fileSystem, directory, temporaryFilePatternConstant)
	if createError != nil {
		return fmt.Errorf(createTemporaryErrorTemplateConstant, directory, createError)
	}
	temporaryPath := temporaryFile.Name()

	if _, writeError := temporaryFile.Write(encoded); writeError != nil {
		_ = temporaryFile.Close()
		_ = store.fileSystem.Remove(temporaryPath)
		return fmt.Errorf(writeTemporaryErrorTemplateConstant, temporaryPath, writeError)
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		_ = store.fileSystem.Remove(temporaryPath)
		return fmt.Errorf(syncTemporaryErrorTemplateConstant, temporaryPath, syncError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return fmt.Errorf(closeTemporaryErrorTemplateConstant, temporaryPath, closeError)
	}
	if renameError := store.fileSystem.Rename(temporaryPath, path); renameError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return fmt.Errorf(replaceLedgerErrorTemplateConstant, path, renameError)
	}
	return nil
}

// Encode renders the ledger document: keys sorted, two-space indentation, trailing newline.
func Encode(ledger *Ledger) ([]byte, error) {
	document := make(map[string]string, ledger.Len())
	for _, entry := range ledger.Entries() {
		document[entry.Repository.String()] = entry.LastUpdate.Format(ledgerTimestampLayoutConstant)
	}

	encoded, marshalError := json.MarshalIndent(document, "", jsonIndentConstant)
	if marshalError != nil {
		return nil, fmt.Errorf(encodeLedgerErrorTemplateConstant, marshalError)
	}
	return append(encoded, '\n'), nil
}
