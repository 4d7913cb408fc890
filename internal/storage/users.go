package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/core"
)

// GroupInfo is a group row joined with its creator's name, as returned by
// the group listing.
type GroupInfo struct {
	ID            int64
	Name          string
	CreatedBy     int64
	CreatedByName string
}

func (r *Repository) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	var existing int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&existing)
	if err == nil {
		return core.User{}, core.ErrEmailInUse
	}
	if err != sql.ErrNoRows {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)",
		name, email, time.Now().Unix(),
	)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "email", email)
	return core.User{ID: id, Name: name, Email: email}, nil
}

func (r *Repository) GetUser(ctx context.Context, userID int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM users WHERE id = ?", userID,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateGroup inserts a group and enrolls its creator as the first member,
// atomically.
func (r *Repository) CreateGroup(ctx context.Context, name string, createdBy int64) (core.Group, error) {
	var groupID int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO groups (group_name, created_by, created_at) VALUES (?, ?, ?)",
			name, createdBy, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		groupID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("group id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
			groupID, createdBy,
		); err != nil {
			return fmt.Errorf("insert creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Group{}, err
	}

	slog.InfoContext(ctx, "Group created", "group_id", groupID, "created_by", createdBy)
	return core.Group{ID: groupID, Name: name, CreatedBy: createdBy}, nil
}

func (r *Repository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM groups WHERE id = ?", groupID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check group: %w", err)
	}
	return true, nil
}

// JoinGroup enrolls the user, reporting false when already a member.
func (r *Repository) JoinGroup(ctx context.Context, groupID, userID int64) (bool, error) {
	member, err := r.IsGroupMember(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	if member {
		return false, nil
	}

	exists, err := r.GroupExists(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, core.ErrGroupNotFound
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID,
	); err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}

	slog.InfoContext(ctx, "User joined group", "group_id", groupID, "user_id", userID)
	return true, nil
}

// IsGroupMember is the membership predicate every authorization check in
// the service layer consumes.
func (r *Repository) IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var one int64
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

func (r *Repository) ListGroupsFor(ctx context.Context, userID int64) ([]GroupInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.group_name, g.created_by, u.name
		FROM groups g
		JOIN users u ON g.created_by = u.id
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.group_name, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []GroupInfo
	for rows.Next() {
		var g GroupInfo
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedByName); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// GroupMembers returns members in ascending user id order so every derived
// read built on it is deterministic.
func (r *Repository) GroupMembers(ctx context.Context, groupID int64) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY u.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
