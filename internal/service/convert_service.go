package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"flickr-shapes/internal/models"
	"flickr-shapes/internal/parser"
	"flickr-shapes/internal/repository"

	"github.com/rs/zerolog/log"
)

// DatasetOpener acquires the output dataset for one conversion
type DatasetOpener func(ctx context.Context) (repository.Dataset, error)

// ConvertOptions tunes how features are dated and grouped
type ConvertOptions struct {
	DateLayout string
	Location   *time.Location
	Progress   io.Writer
}

// Summary describes a finished conversion
type Summary struct {
	Features int
	Skipped  int
	Groups   []string
}

// ConvertService runs one document through the parser into a dataset
type ConvertService struct {
	open DatasetOpener
	opts ConvertOptions
}

// NewConvertService creates a new convert service
func NewConvertService(open DatasetOpener, opts ConvertOptions) *ConvertService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &ConvertService{open: open, opts: opts}
}

// Convert reads the places document from r and writes its features.
// The dataset is closed on success and aborted on any failure.
func (s *ConvertService) Convert(ctx context.Context, r io.Reader) (summary *Summary, err error) {
	dataset, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to open dataset: %w", err)
	}

	defer func() {
		if err != nil {
			if aerr := dataset.Abort(ctx); aerr != nil {
				log.Error().Err(aerr).Msg("failed to abort dataset")
			}
			return
		}
		if cerr := dataset.Close(ctx); cerr != nil {
			summary = nil
			err = fmt.Errorf("service: failed to close dataset: %w", cerr)
		}
	}()

	router := repository.NewRouter(dataset)
	if _, err = router.GetOrCreateGroup(ctx, models.PlaceholderGroup); err != nil {
		return nil, fmt.Errorf("service: failed to create placeholder group: %w", err)
	}

	machine := parser.NewMachine(
		parser.NewAssembler(router, s.opts.DateLayout),
		parser.WithLocation(s.opts.Location),
		parser.WithProgress(s.opts.Progress),
	)
	if err = machine.Parse(ctx, r); err != nil {
		return nil, fmt.Errorf("service: failed to convert document: %w", err)
	}

	return &Summary{
		Features: machine.Features(),
		Skipped:  machine.Skipped(),
		Groups:   router.Groups(),
	}, nil
}
