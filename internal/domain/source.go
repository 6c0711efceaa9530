package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
)

// GridSource supplies the gridded field of one variable for one day.
type GridSource interface {
	LoadGrid(ctx context.Context, day time.Time, variable string) (grid.Grid, error)
}
