package store

import (
	"database/sql"
	"time"

	"github.com/matheus3301/gchat/internal/groupchat"
)

// UpsertMember inserts or refreshes a group member.
func (db *DB) UpsertMember(groupID int64, m *groupchat.GroupMember) error {
	role := m.Role
	if role == "" {
		role = groupchat.RoleMember
	}
	_, err := db.Exec(`
		INSERT INTO group_members (group_id, user_id, username, display_name, avatar, role, joined_at, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, user_id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			avatar = excluded.avatar,
			role = excluded.role,
			joined_at = excluded.joined_at,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		groupID, m.UserID, m.Username, m.DisplayName, m.Avatar, string(role), m.JoinedAt, m.IsActive, time.Now().UnixMilli())
	return err
}

// ReplaceMembers makes members the full member list of a group.
func (db *DB) ReplaceMembers(groupID int64, members []groupchat.GroupMember) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM group_members WHERE group_id = ?`, groupID); err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		for _, m := range members {
			role := m.Role
			if role == "" {
				role = groupchat.RoleMember
			}
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO group_members (group_id, user_id, username, display_name, avatar, role, joined_at, is_active, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				groupID, m.UserID, m.Username, m.DisplayName, m.Avatar, string(role), m.JoinedAt, m.IsActive, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMember removes a member from a group. Unknown members are ignored.
func (db *DB) DeleteMember(groupID, userID int64) error {
	_, err := db.Exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	return err
}

// ListMembers returns the cached members of a group ordered by username.
func (db *DB) ListMembers(groupID int64) ([]groupchat.GroupMember, error) {
	rows, err := db.Query(`
		SELECT user_id, username, display_name, avatar, role, joined_at, is_active
		FROM group_members
		WHERE group_id = ?
		ORDER BY username ASC, user_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var members []groupchat.GroupMember
	for rows.Next() {
		var (
			m    groupchat.GroupMember
			role string
		)
		if err := rows.Scan(&m.UserID, &m.Username, &m.DisplayName, &m.Avatar, &role, &m.JoinedAt, &m.IsActive); err != nil {
			return nil, err
		}
		m.Role = groupchat.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}
