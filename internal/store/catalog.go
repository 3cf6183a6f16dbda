package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// SegmentInput is one time-bounded transcript span to persist for a video.
type SegmentInput struct {
	TStart float64
	TEnd   float64
	Text   string
	Lang   string
	Meta   string
}

// AnnotationInput ties a fine unit to the segment (by index into the segment
// slice) it was observed in.
type AnnotationInput struct {
	SegmentIndex int
	Label        string
	PartOfSpeech string
	Definition   string
	Evidence     string
}

// SaveStats summarizes what a SaveAnalysis call wrote.
type SaveStats struct {
	Segments           int
	FineUnitsCreated   int
	Occurrences        int
	OccurrencesSkipped int
}

// EnsureVideo returns the id of the video row for uid, creating it when
// absent. The no-op conflict update lets RETURNING yield the existing id.
func (s *Store) EnsureVideo(ctx context.Context, uid, title, storagePath string, duration float64) (int64, error) {
	if uid == "" {
		return 0, errors.New("ensure video: uid is required")
	}
	timestamp := formatTime(time.Now().UTC())
	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(
			ctx,
			`INSERT INTO video (video_uid, title, duration, status, storage_path, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(video_uid) DO UPDATE SET video_uid = excluded.video_uid
             RETURNING id`,
			uid,
			title,
			duration,
			VideoProcessing,
			nullableString(storagePath),
			timestamp,
			timestamp,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("ensure video: %w", err)
	}
	return id, nil
}

// UpdateVideoStatus moves a video through its lifecycle
// (processing, ready, error).
func (s *Store) UpdateVideoStatus(ctx context.Context, videoID int64, status VideoStatus) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE video SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		formatTime(time.Now().UTC()),
		videoID,
	)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	return nil
}

// SetVideoDuration records the measured duration once alignment knows it.
func (s *Store) SetVideoDuration(ctx context.Context, videoID int64, duration float64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE video SET duration = ?, updated_at = ? WHERE id = ?`,
		duration,
		formatTime(time.Now().UTC()),
		videoID,
	)
	if err != nil {
		return fmt.Errorf("set video duration: %w", err)
	}
	return nil
}

// GetVideoByUID fetches a video row, or nil when absent.
func (s *Store) GetVideoByUID(ctx context.Context, uid string) (*Video, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, video_uid, title, duration, status, storage_path
         FROM video WHERE video_uid = ?`,
		uid,
	)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// SaveAnalysis persists a video's segments and fine-unit annotations in one
// transaction. Re-running it with the same inputs changes nothing observable:
// segments upsert on (video_id, t_start, text), fine units are looked up or
// created on (label, part_of_speech), and occurrences insert-or-ignore on
// (segment_id, fine_unit_id) keeping the first evidence seen.
func (s *Store) SaveAnalysis(ctx context.Context, videoID int64, segments []SegmentInput, annotations []AnnotationInput) (SaveStats, error) {
	stats := SaveStats{}
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save analysis: %w", err)
		}
		defer tx.Rollback()

		stats = SaveStats{}
		timestamp := formatTime(time.Now().UTC())

		segmentIDs := make([]int64, len(segments))
		for i, seg := range segments {
			var id int64
			err := tx.QueryRowContext(
				ctx,
				`INSERT INTO segment (video_id, t_start, t_end, text, lang, meta, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(video_id, t_start, text) DO UPDATE SET
                     t_end = excluded.t_end,
                     updated_at = excluded.updated_at
                 RETURNING id`,
				videoID,
				seg.TStart,
				seg.TEnd,
				seg.Text,
				NormalizeLang(seg.Lang),
				nullableString(seg.Meta),
				timestamp,
				timestamp,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("upsert segment [%0.2f, %0.2f): %w", seg.TStart, seg.TEnd, err)
			}
			segmentIDs[i] = id
			stats.Segments++
		}

		fineUnitIDs := make(map[string]int64)
		for _, ann := range annotations {
			if ann.SegmentIndex < 0 || ann.SegmentIndex >= len(segments) {
				return fmt.Errorf("annotation %q references segment %d of %d", ann.Label, ann.SegmentIndex, len(segments))
			}
			key := ann.Label + "\x00" + ann.PartOfSpeech
			fineUnitID, seen := fineUnitIDs[key]
			if !seen {
				var created bool
				fineUnitID, created, err = ensureFineUnit(ctx, tx, ann, timestamp)
				if err != nil {
					return err
				}
				fineUnitIDs[key] = fineUnitID
				if created {
					stats.FineUnitsCreated++
				}
			}

			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO occurrence (segment_id, fine_unit_id, evidence, status, created_at)
                 VALUES (?, ?, ?, ?, ?)
                 ON CONFLICT(segment_id, fine_unit_id) DO NOTHING`,
				segmentIDs[ann.SegmentIndex],
				fineUnitID,
				nullableString(ann.Evidence),
				OccurrenceActive,
				timestamp,
			)
			if err != nil {
				return fmt.Errorf("insert occurrence %q: %w", ann.Label, err)
			}
			inserted, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("occurrence rows affected: %w", err)
			}
			if inserted > 0 {
				stats.Occurrences++
			} else {
				stats.OccurrencesSkipped++
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return SaveStats{}, err
	}
	return stats, nil
}

func ensureFineUnit(ctx context.Context, tx *sql.Tx, ann AnnotationInput, timestamp string) (int64, bool, error) {
	var existingID int64
	err := tx.QueryRowContext(
		ctx,
		`SELECT id FROM fine_unit WHERE label = ? AND part_of_speech = ?`,
		ann.Label,
		ann.PartOfSpeech,
	).Scan(&existingID)
	if err == nil {
		return existingID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("lookup fine unit %q: %w", ann.Label, err)
	}

	var id int64
	err = tx.QueryRowContext(
		ctx,
		`INSERT INTO fine_unit (label, part_of_speech, definition, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(label, part_of_speech) DO UPDATE SET label = excluded.label
         RETURNING id`,
		ann.Label,
		ann.PartOfSpeech,
		nullableString(ann.Definition),
		timestamp,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("create fine unit %q: %w", ann.Label, err)
	}
	return id, true, nil
}

// SegmentsByVideo returns a video's segments in time order.
func (s *Store) SegmentsByVideo(ctx context.Context, videoID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, t_start, t_end, text, lang, meta
         FROM segment WHERE video_id = ? ORDER BY t_start`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("segments by video: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		seg := &Segment{}
		var meta sql.NullString
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.TStart, &seg.TEnd, &seg.Text, &seg.Lang, &meta); err != nil {
			return nil, err
		}
		seg.Meta = meta.String
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// OccurrencesBySegment lists which fine units were observed in a segment.
func (s *Store) OccurrencesBySegment(ctx context.Context, segmentID int64) ([]*Occurrence, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, segment_id, fine_unit_id, evidence, status
         FROM occurrence WHERE segment_id = ? ORDER BY id`,
		segmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("occurrences by segment: %w", err)
	}
	defer rows.Close()

	var occurrences []*Occurrence
	for rows.Next() {
		occ := &Occurrence{}
		var evidence sql.NullString
		if err := rows.Scan(&occ.ID, &occ.SegmentID, &occ.FineUnitID, &evidence, &occ.Status); err != nil {
			return nil, err
		}
		occ.Evidence = evidence.String
		occurrences = append(occurrences, occ)
	}
	return occurrences, rows.Err()
}

// FineUnitByLabel fetches one catalog entry, or nil when absent.
func (s *Store) FineUnitByLabel(ctx context.Context, label, partOfSpeech string) (*FineUnit, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, label, part_of_speech, definition
         FROM fine_unit WHERE label = ? AND part_of_speech = ?`,
		label,
		partOfSpeech,
	)
	unit := &FineUnit{}
	var definition sql.NullString
	err := row.Scan(&unit.ID, &unit.Label, &unit.PartOfSpeech, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fine unit by label: %w", err)
	}
	unit.Definition = definition.String
	return unit, nil
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	video := &Video{}
	var storagePath sql.NullString
	var statusStr string
	if err := scanner.Scan(&video.ID, &video.VideoUID, &video.Title, &video.Duration, &statusStr, &storagePath); err != nil {
		return nil, err
	}
	video.Status = VideoStatus(statusStr)
	video.StoragePath = storagePath.String
	return video, nil
}

// NormalizeLang canonicalizes a BCP 47 tag ("EN-us" becomes "en-US") and
// falls back to "en" for empty or unparseable values.
func NormalizeLang(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "en"
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "en"
	}
	return tag.String()
}
