package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/journal"
)

// openJournal opens an existing journal. Unlike journal.Open it refuses
// to create a missing file, since replay and trace only read.
func openJournal(formatter *OutputFormatter, path string) (*journal.Journal, error) {
	if path == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound,
			"no journal database: pass --db or set TCA_DB", nil)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, "journal database not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	return j, nil
}

func parseSessionID(formatter *OutputFormatter, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid session id", err)
	}
	return id, nil
}
