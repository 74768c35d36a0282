package parsers

import (
	"io"

	"github.com/username/cryptofolio/backend/src/models"
)

// Parser converts one platform's export file into canonical events. Each
// parser owns the full normalization for its format, including mapping the
// platform's loosely-typed operation names onto models.EventKind; rows it
// cannot make sense of are skipped with a warning, never fatal.
type Parser interface {
	Parse(file io.Reader) ([]models.Event, error)
}
