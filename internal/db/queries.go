package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/snapshot"
)

const snapshotColumns = `id, subject, captured_at, follower_count, fidelity, followers_json`

// SnapshotStore is the append-only snapshot store backed by SQLite.
// There are no update or delete paths: a snapshot is superseded by newer
// ones, never changed.
type SnapshotStore struct {
	db *sql.DB

	// Now is the store's clock. FindClosestTo ignores snapshots captured
	// after Now(). Tests replace it to pin time.
	Now func() time.Time
}

// NewSnapshotStore wraps an initialized database.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db, Now: time.Now}
}

// Save inserts a snapshot and returns its id. A ULID is generated when the
// snapshot has none. An existing snapshot with the same id, or the same
// subject and capture time, is never overwritten.
func (s *SnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", errors.NewPersistence("refusing to store invalid snapshot", err)
	}

	if snap.ID == "" {
		id, err := newID(snap.CapturedAt)
		if err != nil {
			return "", errors.NewPersistence("failed to generate snapshot id", err)
		}
		snap.ID = id
	}

	var followersJSON sql.NullString
	if snap.Fidelity == snapshot.FidelityFull {
		records := snap.Followers
		if records == nil {
			records = []follower.Record{}
		}
		data, err := json.Marshal(records)
		if err != nil {
			return "", errors.NewPersistence("failed to encode followers", err)
		}
		followersJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO snapshots (
			id, subject, captured_at, captured_at_text,
			follower_count, fidelity, followers_json
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.Subject, snap.CapturedAt.UnixNano(),
		snap.CapturedAt.UTC().Format(time.RFC3339Nano),
		snap.FollowerCount, string(snap.Fidelity), followersJSON,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", errors.NewPersistence(
				fmt.Sprintf("snapshot for %q at %s already exists", snap.Subject, snap.CapturedAt.UTC().Format(time.RFC3339Nano)),
				err,
			)
		}
		return "", errors.NewPersistence("failed to save snapshot", err)
	}

	return snap.ID, nil
}

// FindClosestTo returns the snapshot of subject whose capture time is
// closest to target, considering only snapshots captured at or before
// Now(). Ties go to the more recent capture. Returns nil, nil when the
// subject has no eligible snapshot.
func (s *SnapshotStore) FindClosestTo(ctx context.Context, subject string, target time.Time) (*snapshot.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE subject = ? AND captured_at <= ?
		ORDER BY ABS(captured_at - ?) ASC, captured_at DESC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, subject, s.Now().UnixNano(), target.UnixNano())
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistence("failed to look up baseline snapshot", err)
	}
	return snap, nil
}

// FindEarliestSince returns the oldest snapshot of subject captured at or
// after since and at or before Now(). Returns nil, nil when there is none.
func (s *SnapshotStore) FindEarliestSince(ctx context.Context, subject string, since time.Time) (*snapshot.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE subject = ? AND captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, subject, since.UnixNano(), s.Now().UnixNano())
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistence("failed to look up baseline snapshot", err)
	}
	return snap, nil
}

// GetByID retrieves a snapshot by its ULID.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewPersistence("failed to read snapshot", err)
	}
	return snap, nil
}

// ListBySubject returns snapshot summaries for subject, newest first,
// along with the total number of snapshots for that subject.
func (s *SnapshotStore) ListBySubject(ctx context.Context, subject string, limit, offset int) ([]snapshot.Summary, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE subject = ?`, subject,
	).Scan(&total); err != nil {
		return nil, 0, errors.NewPersistence("failed to count snapshots", err)
	}

	query := `
		SELECT id, subject, captured_at, follower_count, fidelity,
			COALESCE(json_array_length(followers_json), 0)
		FROM snapshots
		WHERE subject = ?
		ORDER BY captured_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, subject, limit, offset)
	if err != nil {
		return nil, 0, errors.NewPersistence("failed to list snapshots", err)
	}
	defer rows.Close()

	var summaries []snapshot.Summary
	for rows.Next() {
		var (
			sum      snapshot.Summary
			nanos    int64
			fidelity string
		)
		if err := rows.Scan(&sum.ID, &sum.Subject, &nanos, &sum.FollowerCount, &fidelity, &sum.RecordCount); err != nil {
			return nil, 0, errors.NewPersistence("failed to read snapshot row", err)
		}
		at := fromNanos(nanos)
		sum.CapturedAt = at.Format(time.RFC3339)
		sum.CapturedAtUnix = at.Unix()
		sum.Fidelity = snapshot.Fidelity(fidelity)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewPersistence("failed to list snapshots", err)
	}

	return summaries, total, nil
}

// ListSubjects returns every subject with stored snapshots, most recently
// captured first.
func (s *SnapshotStore) ListSubjects(ctx context.Context) ([]snapshot.SubjectInfo, error) {
	query := `
		SELECT subject, COUNT(*), MAX(captured_at) AS latest
		FROM snapshots
		GROUP BY subject
		ORDER BY latest DESC, subject ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewPersistence("failed to list subjects", err)
	}
	defer rows.Close()

	var out []snapshot.SubjectInfo
	for rows.Next() {
		var (
			info  snapshot.SubjectInfo
			nanos int64
		)
		if err := rows.Scan(&info.Subject, &info.Snapshots, &nanos); err != nil {
			return nil, errors.NewPersistence("failed to read subject row", err)
		}
		info.LatestAt = fromNanos(nanos).Format(time.RFC3339)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("failed to list subjects", err)
	}
	return out, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanSnapshot scans a single row into a Snapshot.
func scanSnapshot(row *sql.Row) (*snapshot.Snapshot, error) {
	var (
		snap          snapshot.Snapshot
		nanos         int64
		fidelity      string
		followersJSON sql.NullString
	)

	if err := row.Scan(&snap.ID, &snap.Subject, &nanos, &snap.FollowerCount, &fidelity, &followersJSON); err != nil {
		return nil, err
	}

	snap.CapturedAt = fromNanos(nanos)
	snap.Fidelity = snapshot.Fidelity(fidelity)

	if followersJSON.Valid && followersJSON.String != "" {
		if err := json.Unmarshal([]byte(followersJSON.String), &snap.Followers); err != nil {
			return nil, err
		}
	}

	return &snap, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// newID generates a ULID whose timestamp is the capture time.
func newID(at time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
