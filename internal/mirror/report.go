package mirror

import (
	"fmt"
	"io"
	"time"

	"github.com/temirov/repomirror/internal/ledger"
)

const (
	candidateLineTemplateConstant = "%s\t%s\n"
	outcomeLineTemplateConstant   = "%s\t%s\t%s\n"
	summaryLineTemplateConstant   = "synchronized %d of %d repositories (%d failed, %d outdated, %d accounts skipped)\n"
	dryRunSummaryTemplateConstant = "%d outdated repositories (%d accounts skipped)\n"
	ledgerEntryTemplateConstant   = "%s\t%s\n"
)

// WriteReport prints one line per outcome followed by a summary. A dry run prints the outdated
// candidates with their remote update times instead.
func WriteReport(writer io.Writer, report Report) error {
	if report.DryRun {
		for _, candidate := range report.Candidates {
			if _, writeError := fmt.Fprintf(writer, candidateLineTemplateConstant, candidate.Repository, candidate.RemoteUpdatedAt.Format(time.RFC3339)); writeError != nil {
				return writeError
			}
		}
		_, writeError := fmt.Fprintf(writer, dryRunSummaryTemplateConstant, len(report.Candidates), len(report.SkippedAccounts))
		return writeError
	}

	for _, outcome := range report.Outcomes {
		if _, writeError := fmt.Fprintf(writer, outcomeLineTemplateConstant, outcome.Repository, outcome.Action, outcome.Describe()); writeError != nil {
			return writeError
		}
	}
	_, writeError := fmt.Fprintf(
		writer,
		summaryLineTemplateConstant,
		len(report.Outcomes)-report.Failed(),
		len(report.Outcomes),
		report.Failed(),
		len(report.Candidates),
		len(report.SkippedAccounts),
	)
	return writeError
}

// WriteLedgerEntries prints the ledger sorted by repository identifier.
func WriteLedgerEntries(writer io.Writer, entries []ledger.Entry) error {
	for _, entry := range entries {
		if _, writeError := fmt.Fprintf(writer, ledgerEntryTemplateConstant, entry.Repository, entry.LastUpdate.Format(time.RFC3339)); writeError != nil {
			return writeError
		}
	}
	return nil
}
