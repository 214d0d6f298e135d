// Package quote supplies live USD quotes for the two stake token classes.
// Quotes only feed the USD valuation of a stake; a missing quote is a
// normal condition, never an error.
package quote

import (
	"context"

	"github.com/antitoken/collider/internal/model"
)

// Source returns the current quotes for ANTI and PRO.
type Source interface {
	Quotes(ctx context.Context) (model.Quotes, error)
}

// Static is a Source with fixed quotes, used in development and tests.
type Static model.Quotes

func (s Static) Quotes(_ context.Context) (model.Quotes, error) {
	return model.Quotes(s), nil
}
