package importer

import (
	"io"
	"time"

	"github.com/dmaia/kakeibo/internal/event"
)

type Format string

const (
	FormatCSV Format = "csv"
)

// Row is one parsed statement line. Accounts are referenced by name; the
// caller resolves them to ids before creating events.
type Row struct {
	Kind          event.Kind
	Amount        int64 // Minor currency units
	Account       string
	TargetAccount string
	Category      string
	Note          string
	OccurredAt    time.Time
}

type Parser interface {
	Parse(r io.Reader) ([]Row, error)
}
