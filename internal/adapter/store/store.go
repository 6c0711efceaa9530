// Package store persists extracted profiles in an embedded badger database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned by Get when no profile has the requested ID.
var ErrNotFound = errors.New("profile not found")

const keyPrefix = "profile/"

// Store keeps profiles as zstd-compressed JSON keyed by profile ID.
// It implements pipeline.BatchLoader.
type Store struct {
	db        *badger.DB
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	retention time.Duration
	logger    *slog.Logger
}

// Open opens or creates the database at path. Entries expire after
// retention; zero keeps them forever.
func Open(path string, retention time.Duration, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{
		db:        db,
		encoder:   encoder,
		decoder:   decoder,
		retention: retention,
		logger:    logger,
	}, nil
}

// LoadBatch writes profiles in one badger write batch. Reprocessed requests
// overwrite their earlier profile.
func (s *Store) LoadBatch(ctx context.Context, profiles []domain.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range profiles {
		data, err := json.Marshal(profiles[i])
		if err != nil {
			return fmt.Errorf("serialize profile %s: %w", profiles[i].ID, err)
		}
		e := badger.NewEntry(key(profiles[i].ID), s.encoder.EncodeAll(data, nil))
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		if err := wb.SetEntry(e); err != nil {
			return fmt.Errorf("stage profile %s: %w", profiles[i].ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush %d profiles: %w", len(profiles), err)
	}
	return nil
}

// Get returns the stored profile with the given ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}

	var p domain.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data, err := s.decoder.DecodeAll(val, nil)
			if err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
			return json.Unmarshal(data, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile %s: %w", id, err)
	}
	return p, nil
}

// RunGC reclaims value log space every interval until ctx is cancelled.
// A non-positive interval disables collection.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Warn("badger value log gc failed", "error", err)
					}
					break
				}
			}
		}
	}
}

func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
