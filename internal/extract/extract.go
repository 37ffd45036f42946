// Package extract turns a free-text answer into atomic claims.
package extract

import (
	"context"

	"github.com/ppiankov/medeval/internal/model"
)

// Extractor splits an answer into claims. Implementations return either a
// complete, schema-valid claim list or an error; never a partial list.
type Extractor interface {
	Extract(ctx context.Context, answer string, priorTurns []string) ([]model.Claim, error)
}
