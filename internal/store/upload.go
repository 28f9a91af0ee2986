package store

import "time"

// QueueUpload records a file waiting in the media pipeline.
func (db *DB) QueueUpload(u *Upload) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO uploads (id, user_id, file_name, size, kind, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'queued', ?, ?)`,
		u.ID, u.UserID, u.FileName, u.Size, u.Kind, now, now)
	return err
}

// MarkUploadStarted moves an upload to 'uploading' once its target is known.
func (db *DB) MarkUploadStarted(id, kind, mediaID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE uploads SET status = 'uploading', kind = ?, media_id = ?, updated_at = ? WHERE id = ?`, kind, mediaID, now, id)
	return err
}

// MarkUploadDone records the final media URL.
func (db *DB) MarkUploadDone(id, url string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE uploads SET status = 'done', url = ?, error_message = '', updated_at = ? WHERE id = ?`, url, now, id)
	return err
}

// MarkUploadFailed records why an upload failed.
func (db *DB) MarkUploadFailed(id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE uploads SET status = 'failed', error_message = ?, updated_at = ? WHERE id = ?`, errMsg, now, id)
	return err
}

// ListUploads returns the most recent uploads first.
func (db *DB) ListUploads(limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, user_id, file_name, size, kind, status, media_id, url, error_message, created_at, updated_at
		FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.UserID, &u.FileName, &u.Size, &u.Kind, &u.Status, &u.MediaID, &u.URL, &u.ErrorMessage, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
