package service

import (
	"io"
	"log/slog"

	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
)

// countingBudget allows a fixed number of item checks and is then spent.
type countingBudget struct {
	remaining int
}

func (b *countingBudget) Exhausted() bool {
	if b.remaining <= 0 {
		return true
	}
	b.remaining--
	return false
}

// unlimited never runs out.
type unlimited struct{}

func (unlimited) Exhausted() bool { return false }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(ext string, code int) registrymodels.Record {
	return registrymodels.Record{ExternalID: id.ExternalID(ext), StatusCode: registrymodels.StatusCode(code)}
}

// activeView builds a status result where active holds the active ids and
// unknown holds ids the scan never reached.
func activeView(active []string, unknown ...string) *StatusResult {
	r := &StatusResult{
		Active:  make(map[id.ExternalID]registrymodels.StatusCode),
		Unknown: make(map[id.ExternalID]struct{}),
	}
	for _, ext := range active {
		r.Active[id.ExternalID(ext)] = 1
	}
	for _, ext := range unknown {
		r.Unknown[id.ExternalID(ext)] = struct{}{}
	}
	return r
}
