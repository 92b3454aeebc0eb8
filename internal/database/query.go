package database

import (
	"database/sql"
	"fmt"
	"time"
)

const selectColumns = `
	SELECT id, timestamp, action, path, file_name, size,
	       delayed, delay_seconds, duration_ms, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent deletion attempts
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetDeletionsByDateRange returns deletion attempts within a time range
func (d *DeletionDB) GetDeletionsByDateRange(start, end time.Time) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`, start.UTC(), end.UTC())
}

// GetDeletionsByPath returns deletion attempts matching a path pattern (SQL LIKE)
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetDeletionsByAction returns deletion attempts filtered by action
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetLargestDeletions returns the N largest successful deletions by size
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`, limit)
}

// GetTotalBytesDeleted returns total bytes deleted in a time range
func (d *DeletionDB) GetTotalBytesDeleted(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetCountByAction returns count of attempts grouped by action since a point in time
func (d *DeletionDB) GetCountByAction(since time.Time) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM deletions
	WHERE timestamp >= ?
	GROUP BY action
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeleted      int            `json:"total_deleted"`
	TotalNotFound     int            `json:"total_not_found"`
	TotalErrors       int            `json:"total_errors"`
	TotalDelayed      int            `json:"total_delayed"`
	TotalBytesDeleted int64          `json:"total_bytes_deleted"`
	ByAction          map[string]int `json:"by_action"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
}

// GetDeletionStats returns statistics for the last N days
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'NOT_FOUND' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COUNT(CASE WHEN delayed = 1 THEN 1 END)
		FROM deletions
		WHERE timestamp >= ?
	`, since.UTC()).Scan(&stats.TotalDeleted, &stats.TotalNotFound, &stats.TotalErrors, &stats.TotalDelayed)
	if err != nil {
		return nil, err
	}

	stats.TotalBytesDeleted, err = d.GetTotalBytesDeleted(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetCountByAction(since)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UTC()

	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// PruneOlderThan removes records older than the retention window and
// vacuums the file when anything was removed
func (d *DeletionDB) PruneOlderThan(retentionDays int) (int64, error) {
	removed, err := d.DeleteOldRecords(retentionDays)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	if removed > 0 {
		if err := d.Vacuum(); err != nil {
			return removed, fmt.Errorf("vacuum after prune: %w", err)
		}
	}
	return removed, nil
}

// GetRecentDeletionsPaginated returns paginated attempts with total count.
// An empty action matches every action.
func (d *DeletionDB) GetRecentDeletionsPaginated(action string, limit, offset int) ([]DeletionRecord, int, error) {
	var totalCount int
	var err error
	if action == "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalCount)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM deletions WHERE action = ?", action).Scan(&totalCount)
	}
	if err != nil {
		return nil, 0, err
	}

	var records []DeletionRecord
	if action == "" {
		records, err = d.queryDeletions(selectColumns+`
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
		`, limit, offset)
	} else {
		records, err = d.queryDeletions(selectColumns+`
		WHERE action = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
		`, action, limit, offset)
	}
	return records, totalCount, err
}

func (d *DeletionDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var fileName, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Path, &fileName, &r.Size,
			&r.Delayed, &r.DelaySeconds, &r.DurationMS, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
