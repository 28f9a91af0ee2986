package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/gchat/internal/groupchat"
)

const upsertGroupMessage = `
	INSERT INTO group_messages (group_id, id, sender_id, content, message_type, sender_json, attachments_json, reply_to_json, created_at, timestamp, cached_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(group_id, id) DO NOTHING`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertGroupMessage caches a message. Messages are immutable once posted,
// so a second insert of the same id is ignored.
func (db *DB) UpsertGroupMessage(m *groupchat.GroupMessage) error {
	_, err := insertGroupMessage(db, m, time.Now().UnixMilli())
	return err
}

// UpsertGroupMessages caches a page of messages in one transaction and
// returns how many were new.
func (db *DB) UpsertGroupMessages(msgs []groupchat.GroupMessage) (int, error) {
	inserted := 0
	err := db.inTx(func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		for i := range msgs {
			res, err := insertGroupMessage(tx, &msgs[i], now)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache messages: %w", err)
	}
	return inserted, nil
}

func insertGroupMessage(ex execer, m *groupchat.GroupMessage, now int64) (sql.Result, error) {
	sender, err := json.Marshal(m.Sender)
	if err != nil {
		return nil, fmt.Errorf("encode sender: %w", err)
	}
	attachments := m.Attachments
	if attachments == nil {
		attachments = []groupchat.Attachment{}
	}
	atts, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	var reply sql.NullString
	if m.ReplyTo != nil {
		raw, err := json.Marshal(m.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("encode reply: %w", err)
		}
		reply = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := ex.Exec(upsertGroupMessage,
		m.GroupID, m.ID, m.SenderID, m.Content, m.MessageType,
		string(sender), string(atts), reply, m.CreatedAt, m.Timestamp, now)
	if err != nil {
		return nil, fmt.Errorf("insert message %d: %w", m.ID, err)
	}
	return res, nil
}

// ListGroupMessages returns cached messages of a group, newest first, with
// ids below beforeID (0 means from the newest).
func (db *DB) ListGroupMessages(groupID, beforeID int64, limit int) ([]groupchat.GroupMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT group_id, id, sender_id, content, message_type, sender_json, attachments_json, reply_to_json, created_at, timestamp
		FROM group_messages
		WHERE group_id = ?`
	args := []any{groupID}
	if beforeID > 0 {
		query += ` AND id < ?`
		args = append(args, beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []groupchat.GroupMessage
	for rows.Next() {
		var (
			m            groupchat.GroupMessage
			sender, atts string
			reply        sql.NullString
		)
		if err := rows.Scan(&m.GroupID, &m.ID, &m.SenderID, &m.Content, &m.MessageType, &sender, &atts, &reply, &m.CreatedAt, &m.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sender), &m.Sender); err != nil {
			return nil, fmt.Errorf("decode sender of %d: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(atts), &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments of %d: %w", m.ID, err)
		}
		if reply.Valid {
			m.ReplyTo = &groupchat.GroupMessage{}
			if err := json.Unmarshal([]byte(reply.String), m.ReplyTo); err != nil {
				return nil, fmt.Errorf("decode reply of %d: %w", m.ID, err)
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GroupMessageCount returns the number of cached messages for a group.
func (db *DB) GroupMessageCount(groupID int64) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM group_messages WHERE group_id = ?`, groupID).Scan(&n)
	return n, err
}
