package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const videoColumns = "id, external_id, source_url, title, description, channel_title, published_at, thumbnail_url, audio_url, transcript_text, summary_text, final_points, created_at, updated_at"

// NewVideo inserts a catalog entry for a video awaiting processing.
// The external identifier must be unique; re-ingesting a known video
// should go through UpsertVideo instead.
func (s *Store) NewVideo(ctx context.Context, externalID, sourceURL string) (*Video, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("external id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO videos (external_id, source_url, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		externalID,
		nullableString(sourceURL),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// UpsertVideo inserts or refreshes a catalog entry keyed by external
// identifier, preserving any pipeline output already stored.
func (s *Store) UpsertVideo(ctx context.Context, video *Video) (*Video, error) {
	if video == nil {
		return nil, errors.New("video is nil")
	}
	if strings.TrimSpace(video.ExternalID) == "" {
		return nil, errors.New("external id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO videos (
            external_id, source_url, title, description, channel_title,
            published_at, thumbnail_url, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET
            source_url = excluded.source_url,
            title = excluded.title,
            description = excluded.description,
            channel_title = excluded.channel_title,
            published_at = excluded.published_at,
            thumbnail_url = excluded.thumbnail_url,
            updated_at = excluded.updated_at`,
		video.ExternalID,
		nullableString(video.SourceURL),
		nullableString(video.Title),
		nullableString(video.Description),
		nullableString(video.ChannelTitle),
		nullableString(video.PublishedAt),
		nullableString(video.ThumbnailURL),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("upsert video: %w", err)
	}

	return s.GetVideoByExternalID(ctx, video.ExternalID)
}

// GetVideo fetches a video by identifier. A missing row returns nil
// without an error.
func (s *Store) GetVideo(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// GetVideoByExternalID fetches a video by its external identifier.
func (s *Store) GetVideoByExternalID(ctx context.Context, externalID string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE external_id = ?`, externalID)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video by external id: %w", err)
	}
	return video, nil
}

// UpdateVideo persists changes to an existing video.
func (s *Store) UpdateVideo(ctx context.Context, video *Video) error {
	if video == nil {
		return errors.New("video is nil")
	}
	video.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE videos
         SET external_id = ?, source_url = ?, title = ?, description = ?,
             channel_title = ?, published_at = ?, thumbnail_url = ?, audio_url = ?,
             transcript_text = ?, summary_text = ?, final_points = ?, updated_at = ?
         WHERE id = ?`,
		video.ExternalID,
		nullableString(video.SourceURL),
		nullableString(video.Title),
		nullableString(video.Description),
		nullableString(video.ChannelTitle),
		nullableString(video.PublishedAt),
		nullableString(video.ThumbnailURL),
		nullableString(video.AudioURL),
		nullableString(video.TranscriptText),
		nullableString(video.SummaryText),
		nullableString(video.FinalPoints),
		video.UpdatedAt.Format(time.RFC3339Nano),
		video.ID,
	); err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

// SetAudioURL records where the fetched audio blob is stored.
func (s *Store) SetAudioURL(ctx context.Context, videoID int64, audioURL string) error {
	return s.setVideoField(ctx, videoID, "audio_url", audioURL)
}

// SetTranscript records the full transcript text for a video.
func (s *Store) SetTranscript(ctx context.Context, videoID int64, transcript string) error {
	return s.setVideoField(ctx, videoID, "transcript_text", transcript)
}

// SetSummary records the combined summary text and consolidated points.
func (s *Store) SetSummary(ctx context.Context, videoID int64, summary, points string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE videos SET summary_text = ?, final_points = ?, updated_at = ? WHERE id = ?`,
		nullableString(summary),
		nullableString(points),
		timestamp,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return requireRowAffected(res, videoID)
}

func (s *Store) setVideoField(ctx context.Context, videoID int64, column, value string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE videos SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		nullableString(value),
		timestamp,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return requireRowAffected(res, videoID)
}

func requireRowAffected(res sql.Result, videoID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("video %d not found", videoID)
	}
	return nil
}

// ListVideos returns all videos ordered by creation time, newest first.
func (s *Store) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id           int64
		externalID   string
		sourceURL    sql.NullString
		title        sql.NullString
		description  sql.NullString
		channelTitle sql.NullString
		publishedAt  sql.NullString
		thumbnailURL sql.NullString
		audioURL     sql.NullString
		transcript   sql.NullString
		summary      sql.NullString
		finalPoints  sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&externalID,
		&sourceURL,
		&title,
		&description,
		&channelTitle,
		&publishedAt,
		&thumbnailURL,
		&audioURL,
		&transcript,
		&summary,
		&finalPoints,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:             id,
		ExternalID:     externalID,
		SourceURL:      sourceURL.String,
		Title:          title.String,
		Description:    description.String,
		ChannelTitle:   channelTitle.String,
		PublishedAt:    publishedAt.String,
		ThumbnailURL:   thumbnailURL.String,
		AudioURL:       audioURL.String,
		TranscriptText: transcript.String,
		SummaryText:    summary.String,
		FinalPoints:    finalPoints.String,
	}
	video.CreatedAt = parseTimestamp(createdRaw)
	video.UpdatedAt = parseTimestamp(updatedRaw)
	return video, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
