package engine

import (
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// compact rewrites every live key into a fresh segment (the compaction
// target), retires every older segment, and leaves behind a second fresh,
// empty segment as the new active one.
//
// Two new segment ids are reserved rather than one so that every directory
// entry produced here points into the same, never-again-appended target
// segment, and the new active segment starts genuinely empty — keeping the
// active segment's id strictly greater than every other (I4) without
// having to rewrite the active segment's own offsets.
//
// Steps (1)-(4) never touch a pre-existing segment; only step (6) deletes
// anything, and only after the target and new active segments are fully
// written. A crash between (4) and (6) leaves stale segments on disk that
// the next Open harmlessly re-replays, since ascending-id replay order
// still applies the target/new-active segments last.
func (s *Store) compact() error {
	before := s.bytes
	staleIDs := make([]uint64, 0, len(s.readers))
	for id := range s.readers {
		staleIDs = append(staleIDs, id)
	}

	targetID := s.activeID + 1
	newActiveID := s.activeID + 2

	targetWriter, err := createSegmentWriter(s.fs, s.dir, targetID)
	if err != nil {
		return err
	}
	targetReader, err := openSegmentReader(s.fs, s.dir, targetID)
	if err != nil {
		targetWriter.close()
		return err
	}

	newActiveWriter, err := createSegmentWriter(s.fs, s.dir, newActiveID)
	if err != nil {
		targetReader.close()
		targetWriter.close()
		return err
	}
	newActiveReader, err := openSegmentReader(s.fs, s.dir, newActiveID)
	if err != nil {
		newActiveWriter.close()
		targetReader.close()
		targetWriter.close()
		return err
	}

	closeNewSegments := func() {
		newActiveReader.close()
		newActiveWriter.close()
		targetReader.close()
		targetWriter.close()
	}

	var liveBytes int64
	for _, key := range s.keydir.sortedKeys() {
		e, _ := s.keydir.get(key)
		reader, ok := s.readers[e.segmentID]
		if !ok {
			closeNewSegments()
			return &CorruptIndexError{SegmentID: e.segmentID}
		}
		rec, err := reader.readAt(e.offset)
		if err != nil {
			closeNewSegments()
			return err
		}
		if rec.Kind != kindSet {
			closeNewSegments()
			return &UnexpectedCommandTypeError{SegmentID: e.segmentID, Offset: e.offset}
		}
		offset, length, err := targetWriter.append(rec)
		if err != nil {
			closeNewSegments()
			return err
		}
		s.keydir.set(key, entry{segmentID: targetID, offset: offset})
		liveBytes += length
	}

	// Snapshot the stale readers before dropping them from the live map,
	// so they can still be closed and their files unlinked below.
	staleReaders := make(map[uint64]*segmentReader, len(staleIDs))
	for _, id := range staleIDs {
		staleReaders[id] = s.readers[id]
	}

	// From here on the old readers/writer are retired; the store now
	// serves Get/Set/Remove out of the target and new active segments.
	oldWriter := s.writer
	s.writer = newActiveWriter
	s.activeID = newActiveID
	s.bytes = liveBytes

	s.readers[targetID] = targetReader
	s.readers[newActiveID] = newActiveReader
	for _, id := range staleIDs {
		delete(s.readers, id)
	}

	var retireErr *multierror.Error
	// The target is never appended to again; only its reader stays open.
	if err := targetWriter.close(); err != nil {
		retireErr = multierror.Append(retireErr, err)
	}
	if err := oldWriter.close(); err != nil {
		retireErr = multierror.Append(retireErr, err)
	}
	for id, reader := range staleReaders {
		if err := reader.close(); err != nil {
			retireErr = multierror.Append(retireErr, err)
		}
		if err := s.fs.Remove(segmentPath(s.dir, id)); err != nil {
			retireErr = multierror.Append(retireErr, &IOError{Op: "remove stale segment", Err: err})
		}
	}

	incrCompactions()
	setLiveBytesGauge(s.bytes)
	s.logger.Info("compacted store",
		zap.Int64("bytes_before", before),
		zap.Int64("bytes_after", s.bytes),
		zap.Int("segments_retired", len(staleIDs)),
		zap.Uint64("target_id", targetID),
		zap.Uint64("new_active_id", newActiveID),
	)

	return retireErr.ErrorOrNil()
}
