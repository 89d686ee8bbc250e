package mirror

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/ledger"
	pathutils "github.com/temirov/repomirror/internal/utils/path"
)

const (
	ledgerCommandUseConstant              = "ledger"
	ledgerCommandShortDescriptionConstant = "Print the update ledger"
	ledgerCommandLongDescriptionConstant  = "ledger prints every repository recorded in the update ledger with the time of its last successful sync, ordered by repository."
	ledgerLoadedLogMessageConstant        = "ledger loaded"
)

// LedgerCommandBuilder assembles the ledger inspection command.
type LedgerCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	FileSystem            afero.Fs
	HomeExpander          *pathutils.HomeExpander
}

// Build constructs the ledger command.
func (builder *LedgerCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   ledgerCommandUseConstant,
		Short: ledgerCommandShortDescriptionConstant,
		Long:  ledgerCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(flagLedgerPathNameConstant, "", flagLedgerPathUsageConstant)
	return command, nil
}

func (builder *LedgerCommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if command.Flags().Changed(flagLedgerPathNameConstant) {
		configuration.LedgerPath, _ = command.Flags().GetString(flagLedgerPathNameConstant)
	}

	homeExpander := builder.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	ledgerPath := homeExpander.ExpandOrDefault(configuration.LedgerPath, pathutils.DefaultLedgerPath(applicationNameConstant))

	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	updateLedger, loadError := ledger.NewStore(fileSystem).Load(ledgerPath)
	if loadError != nil {
		return StageError{Stage: StageLedgerLoad, Cause: loadError}
	}

	resolveLogger(builder.LoggerProvider).Debug(
		ledgerLoadedLogMessageConstant,
		zap.String(logFieldLedgerPathConstant, ledgerPath),
		zap.Int(logFieldLedgerEntriesConstant, updateLedger.Len()),
	)
	return WriteLedgerEntries(command.OutOrStdout(), updateLedger.Entries())
}
