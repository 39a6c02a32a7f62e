// Package engine implements kvs's log-structured storage engine: an
// append-only command log split across numbered segment files, an
// in-memory key directory mapping each live key to the segment and byte
// offset of its defining Set record, crash recovery by replaying the log
// in segment-id order, and in-place compaction that reclaims space from
// overwritten and removed keys.
//
// A Store is single-owner and single-threaded: it holds no internal lock,
// and callers that need concurrent access must serialize it themselves.
package engine

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store is an open key/value store backed by a directory of log segments.
type Store struct {
	dir    string
	fs     afero.Fs
	logger *zap.Logger

	threshold int64
	bytes     int64

	keydir   *directory
	activeID uint64
	writer   *segmentWriter
	readers  map[uint64]*segmentReader
}

// Open opens (creating if absent) the store rooted at dir. It replays
// every existing segment in ascending id order to rebuild the key
// directory, then creates a fresh active segment whose id is one greater
// than the largest existing id (or 1 if the store was empty).
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := newConfig(opts...)

	if err := cfg.fs.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "mkdir " + dir, Err: err}
	}

	ids, err := discoverSegmentIDs(cfg.fs, dir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:       dir,
		fs:        cfg.fs,
		logger:    cfg.logger,
		threshold: cfg.compactionThreshold,
		keydir:    newDirectory(),
		readers:   make(map[uint64]*segmentReader),
	}

	var totalBytes int64
	for _, id := range ids {
		reader, err := openSegmentReader(cfg.fs, dir, id)
		if err != nil {
			return nil, err
		}
		result, err := replaySegment(id, reader.file, s.keydir)
		if err != nil {
			reader.close()
			return nil, err
		}
		totalBytes += result.bytes
		s.readers[id] = reader
	}
	s.bytes = totalBytes

	activeID := uint64(0)
	for _, id := range ids {
		if id > activeID {
			activeID = id
		}
	}
	activeID++

	writer, err := createSegmentWriter(cfg.fs, dir, activeID)
	if err != nil {
		return nil, err
	}
	activeReader, err := openSegmentReader(cfg.fs, dir, activeID)
	if err != nil {
		writer.close()
		return nil, err
	}

	s.activeID = activeID
	s.writer = writer
	s.readers[activeID] = activeReader

	s.logger.Info("opened store",
		zap.String("dir", dir),
		zap.Int("segments", len(ids)),
		zap.Uint64("active_id", activeID),
		zap.Int("keys", s.keydir.len()),
		zap.Int64("bytes", s.bytes),
	)

	return s, nil
}

// Close flushes the active segment and releases every open file handle.
// It does not delete anything.
func (s *Store) Close() error {
	var closeErr *multierror.Error
	if err := s.writer.close(); err != nil {
		closeErr = multierror.Append(closeErr, err)
	}
	for _, r := range s.readers {
		if err := r.close(); err != nil {
			closeErr = multierror.Append(closeErr, err)
		}
	}
	return closeErr.ErrorOrNil()
}

// Set writes key=value to the active segment and updates the key
// directory to point at it, overwriting any prior entry for key.
func (s *Store) Set(key, value string) error {
	offset, length, err := s.writer.append(setRecord(key, value))
	if err != nil {
		return err
	}
	s.keydir.set(key, entry{segmentID: s.activeID, offset: offset})
	s.bytes += length

	incrSets()
	setLiveBytesGauge(s.bytes)

	if s.bytes > s.threshold {
		if err := s.compact(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of key and true, or ("", false) if the
// key does not exist.
func (s *Store) Get(key string) (string, bool, error) {
	incrGets()

	e, ok := s.keydir.get(key)
	if !ok {
		return "", false, nil
	}
	reader, ok := s.readers[e.segmentID]
	if !ok {
		return "", false, &CorruptIndexError{SegmentID: e.segmentID}
	}
	rec, err := reader.readAt(e.offset)
	if err != nil {
		return "", false, err
	}
	if rec.Kind != kindSet {
		return "", false, &UnexpectedCommandTypeError{SegmentID: e.segmentID, Offset: e.offset}
	}
	return rec.Value, true, nil
}

// Remove deletes key. It fails with ErrKeyNotFound if key does not exist.
func (s *Store) Remove(key string) error {
	if _, ok := s.keydir.get(key); !ok {
		return ErrKeyNotFound
	}
	_, length, err := s.writer.append(removeRecord(key))
	if err != nil {
		return err
	}
	s.keydir.remove(key)
	s.bytes += length

	incrRemoves()
	setLiveBytesGauge(s.bytes)

	if s.bytes > s.threshold {
		if err := s.compact(); err != nil {
			return err
		}
	}
	return nil
}
