package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
)

// ExtractTransformer implements Transformer by parsing the request and
// sampling the day's grid at the requested location.
type ExtractTransformer struct {
	source   domain.GridSource
	sampler  *grid.Sampler
	variable string
	logger   *slog.Logger
}

// NewTransformer creates an ExtractTransformer over the given grid source.
// variable is extracted for requests that name none; empty means
// domain.DefaultVariable.
func NewTransformer(source domain.GridSource, sampler *grid.Sampler, variable string, logger *slog.Logger) *ExtractTransformer {
	variable = strings.ToUpper(strings.TrimSpace(variable))
	if variable == "" {
		variable = domain.DefaultVariable
	}
	return &ExtractTransformer{
		source:   source,
		sampler:  sampler,
		variable: variable,
		logger:   logger,
	}
}

func (t *ExtractTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Profile, error) {
	req, err := domain.ParseRequestDefault(raw, t.variable)
	if err != nil {
		return domain.Profile{}, err
	}
	return t.Extract(ctx, req)
}

// Extract samples the grid for an already decoded request. The HTTP sample
// endpoint calls it directly.
func (t *ExtractTransformer) Extract(ctx context.Context, req domain.Request) (domain.Profile, error) {
	if strings.TrimSpace(req.Variable) == "" {
		req.Variable = t.variable
	}
	profile, err := domain.Extract(ctx, t.source, t.sampler, req)
	if err != nil {
		return domain.Profile{}, err
	}

	t.logger.Debug("profile extracted",
		"id", profile.ID,
		"location", profile.Location.Name,
		"day", req.Day,
		"method", profile.Method,
	)
	return profile, nil
}
