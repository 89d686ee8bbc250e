package ledger_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/repomirror/internal/ledger"
	"github.com/temirov/repomirror/internal/repository"
)

const (
	testLedgerDirectoryConstant = "/data/repomirror"
	testGoldenFixtureDirectory  = "testdata/golden"
	testGoldenNameSuffix        = ".golden"
)

var testLedgerPath = filepath.Join(testLedgerDirectoryConstant, "last_updated.json")

type openFailingFileSystem struct {
	afero.Fs
}

func (fileSystem openFailingFileSystem) Open(name string) (afero.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

type renameFailingFileSystem struct {
	afero.Fs
}

func (fileSystem renameFailingFileSystem) Rename(oldName string, newName string) error {
	return &os.LinkError{Op: "rename", Old: oldName, New: newName, Err: fs.ErrPermission}
}

func TestStoreLoadMissingFileYieldsEmptyLedger(testInstance *testing.T) {
	store := ledger.NewStore(afero.NewMemMapFs())

	loaded, loadError := store.Load(testLedgerPath)
	require.NoError(testInstance, loadError)
	require.Zero(testInstance, loaded.Len())
}

func TestStoreLoadFailures(testInstance *testing.T) {
	testCases := []struct {
		name       string
		fileSystem func() afero.Fs
	}{
		{
			name: "malformed_json",
			fileSystem: func() afero.Fs {
				return fileSystemWithLedger(testInstance, "{not json")
			},
		},
		{
			name: "non_string_timestamp",
			fileSystem: func() afero.Fs {
				return fileSystemWithLedger(testInstance, `{"alice/repoA": 100}`)
			},
		},
		{
			name: "unparsable_timestamp",
			fileSystem: func() afero.Fs {
				return fileSystemWithLedger(testInstance, `{"alice/repoA": "yesterday"}`)
			},
		},
		{
			name: "empty_repository_key",
			fileSystem: func() afero.Fs {
				return fileSystemWithLedger(testInstance, `{"": "2024-01-02T03:04:05Z"}`)
			},
		},
		{
			name: "unreadable_file",
			fileSystem: func() afero.Fs {
				return openFailingFileSystem{Fs: afero.NewMemMapFs()}
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			store := ledger.NewStore(testCase.fileSystem())

			loaded, loadError := store.Load(testLedgerPath)
			require.Nil(testInstance, loaded)

			var corruptError ledger.CorruptLedgerError
			require.ErrorAs(testInstance, loadError, &corruptError)
			require.Equal(testInstance, testLedgerPath, corruptError.Path)
			require.Contains(testInstance, loadError.Error(), testLedgerPath)
		})
	}
}

func TestStoreSaveMatchesGoldenDocument(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	store := ledger.NewStore(fileSystem)

	updateLedger := ledger.New()
	updateLedger.Record("bob/tool", time.Date(2024, time.March, 4, 5, 6, 7, 0, time.FixedZone("plus_two", 2*60*60)))
	updateLedger.Record("alice/repoA", time.Date(2024, time.January, 2, 3, 4, 5, 600000000, time.UTC))

	require.NoError(testInstance, store.Save(testLedgerPath, updateLedger))

	written, readError := afero.ReadFile(fileSystem, testLedgerPath)
	require.NoError(testInstance, readError)

	golden := goldie.New(testInstance,
		goldie.WithFixtureDir(testGoldenFixtureDirectory),
		goldie.WithNameSuffix(testGoldenNameSuffix),
	)
	golden.Assert(testInstance, "ledger_document", written)

	directoryEntries, listError := afero.ReadDir(fileSystem, testLedgerDirectoryConstant)
	require.NoError(testInstance, listError)
	require.Len(testInstance, directoryEntries, 1)
}

func TestStoreEmptyLedgerDocument(testInstance *testing.T) {
	encoded, encodeError := ledger.Encode(ledger.New())
	require.NoError(testInstance, encodeError)
	require.Equal(testInstance, "{}\n", string(encoded))
}

func TestStoreRoundTrip(testInstance *testing.T) {
	store := ledger.NewStore(afero.NewMemMapFs())

	original := ledger.New()
	original.Record("alice/repoA", time.Date(2024, time.May, 6, 7, 8, 9, 123456789, time.UTC))
	original.Record("alice/repoB", time.Date(2023, time.December, 31, 23, 59, 59, 0, time.FixedZone("minus_five", -5*60*60)))

	require.NoError(testInstance, store.Save(testLedgerPath, original))

	reloaded, loadError := store.Load(testLedgerPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, original.Len(), reloaded.Len())

	for _, entry := range original.Entries() {
		reloadedTime, exists := reloaded.Lookup(entry.Repository)
		require.True(testInstance, exists)
		require.True(testInstance, entry.LastUpdate.Equal(reloadedTime))
		require.False(testInstance, reloaded.IsOutdated(repository.Candidate{Repository: entry.Repository, RemoteUpdatedAt: entry.LastUpdate}))
	}
}

func TestStoreSaveFailureKeepsPreviousFile(testInstance *testing.T) {
	const previousDocument = "{\n  \"alice/repoA\": \"2024-01-02T03:04:05Z\"\n}\n"

	testCases := []struct {
		name       string
		fileSystem func(base afero.Fs) afero.Fs
	}{
		{
			name: "read_only_file_system",
			fileSystem: func(base afero.Fs) afero.Fs {
				return afero.NewReadOnlyFs(base)
			},
		},
		{
			name: "rename_failure",
			fileSystem: func(base afero.Fs) afero.Fs {
				return renameFailingFileSystem{Fs: base}
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			base := fileSystemWithLedger(testInstance, previousDocument)
			store := ledger.NewStore(testCase.fileSystem(base))

			updateLedger := ledger.New()
			updateLedger.Record("alice/repoA", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))

			saveError := store.Save(testLedgerPath, updateLedger)
			require.Error(testInstance, saveError)

			preserved, readError := afero.ReadFile(base, testLedgerPath)
			require.NoError(testInstance, readError)
			require.Equal(testInstance, previousDocument, string(preserved))

			directoryEntries, listError := afero.ReadDir(base, testLedgerDirectoryConstant)
			require.NoError(testInstance, listError)
			require.Len(testInstance, directoryEntries, 1)
		})
	}
}

func fileSystemWithLedger(testInstance *testing.T, contents string) afero.Fs {
	testInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(testLedgerDirectoryConstant, 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, testLedgerPath, []byte(contents), 0o600))
	return fileSystem
}
