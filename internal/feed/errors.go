package feed

import (
	"errors"

	"github.com/rickgao/catalog-feed/internal/ledger"
	"github.com/rickgao/catalog-feed/internal/model"
)

// ErrCursorAhead is returned when since_id is past every id the ledger has
// issued. The request is rejected before the ledger is touched.
var ErrCursorAhead = errors.New("since_id is higher than the ledger's last issued id")

// Kind classifies a Get error for callers that map errors to responses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindCursorAhead
	KindConsistency
)

// KindOf classifies err.
func KindOf(err error) Kind {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		return KindValidation
	case errors.Is(err, ErrCursorAhead):
		return KindCursorAhead
	case errors.Is(err, ledger.ErrStabilize):
		return KindConsistency
	default:
		return KindInternal
	}
}
