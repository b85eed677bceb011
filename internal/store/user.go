package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

// Initial checkpoint state of a new user.
const initialCheckpointState = "accruing"

var userColumns = []string{
	"id", "device_id", "name", "age", "interests", "education_level",
	"checkpoint_interval", "watched_count", "checkpoint_state",
	"last_active_at", "created_at", "updated_at",
}

func scanUser(rows *entsql.Rows) (*User, error) {
	var (
		u          User
		interests  sql.NullString
		lastActive sql.NullTime
	)
	err := rows.Scan(&u.ID, &u.DeviceID, &u.Name, &u.Age, &interests, &u.EducationLevel,
		&u.CheckpointInterval, &u.WatchedCount, &u.CheckpointState,
		&lastActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Interests = decodeStrings(interests.String)
	if lastActive.Valid {
		u.LastActiveAt = lastActive.Time
	}
	return &u, nil
}

// validateProfile checks a profile before it is written. A zero interval
// means "use the default"; callers that must reject an explicit zero do
// so before reaching the store.
func validateProfile(p UserProfile, requireDevice bool) error {
	if requireDevice && strings.TrimSpace(p.DeviceID) == "" {
		return apperr.Invalid("device_id", "must not be empty")
	}
	if p.CheckpointInterval < 0 {
		return apperr.Invalid("checkpoint_interval", "must be positive, got %d", p.CheckpointInterval)
	}
	if p.Age < 0 {
		return apperr.Invalid("age", "must not be negative")
	}
	return nil
}

func (c conn) CreateUser(ctx context.Context, p UserProfile) (*User, error) {
	if err := validateProfile(p, true); err != nil {
		return nil, err
	}
	if existing, err := c.FindUserByDeviceID(ctx, p.DeviceID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &apperr.DuplicateError{Entity: "user", Key: p.DeviceID}
	}

	interval := p.CheckpointInterval
	if interval == 0 {
		interval = defaultInterval
	}
	now := time.Now().UTC()
	u := &User{
		ID:                 uuid.NewString(),
		DeviceID:           p.DeviceID,
		Name:               p.Name,
		Age:                p.Age,
		Interests:          p.Interests,
		EducationLevel:     p.EducationLevel,
		CheckpointInterval: interval,
		CheckpointState:    initialCheckpointState,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	q := builder.Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.DeviceID, u.Name, u.Age, encodeStrings(u.Interests), u.EducationLevel,
			u.CheckpointInterval, int64(0), u.CheckpointState, nil, now, now)
	if _, err := c.exec(ctx, q); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (c conn) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := c.findUser(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}

// FindUserByDeviceID returns nil, nil when no user has the device id.
func (c conn) FindUserByDeviceID(ctx context.Context, deviceID string) (*User, error) {
	return c.findUser(ctx, "device_id", deviceID)
}

func (c conn) findUser(ctx context.Context, col, val string) (*User, error) {
	var u *User
	q := builder.Select(userColumns...).
		From(entsql.Table(usersTable)).
		Where(entsql.EQ(col, val)).
		Limit(1)
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		var err error
		u, err = scanUser(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (c conn) UpdateUserProfile(ctx context.Context, id string, p UserProfile) (*User, error) {
	if err := validateProfile(p, false); err != nil {
		return nil, err
	}
	upd := builder.Update(usersTable).
		Set("name", p.Name).
		Set("age", p.Age).
		Set("interests", encodeStrings(p.Interests)).
		Set("education_level", p.EducationLevel).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	if p.CheckpointInterval > 0 {
		upd.Set("checkpoint_interval", p.CheckpointInterval)
	}
	n, err := c.exec(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("user", id)
	}
	return c.GetUser(ctx, id)
}

// IncrementWatchedCount atomically adds one to the user's lifetime watched
// count and returns the new value.
func (c conn) IncrementWatchedCount(ctx context.Context, userID string, at time.Time) (int64, error) {
	var rows entsql.Rows
	err := c.ex.Query(ctx,
		`UPDATE `+usersTable+` SET watched_count = watched_count + 1, last_active_at = ?, updated_at = ? WHERE id = ? RETURNING watched_count`,
		[]any{at.UTC(), at.UTC(), userID}, &rows)
	if err != nil {
		return 0, fmt.Errorf("increment watched count: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("increment watched count: %w", err)
		}
		return 0, apperr.NotFound("user", userID)
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan watched count: %w", err)
	}
	return count, nil
}

// SetCheckpointState persists the user's checkpoint state and marks the
// user active at the given time.
func (c conn) SetCheckpointState(ctx context.Context, userID, state string, at time.Time) error {
	n, err := c.exec(ctx, builder.Update(usersTable).
		Set("checkpoint_state", state).
		Set("last_active_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", userID)))
	if err != nil {
		return fmt.Errorf("set checkpoint state: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("user", userID)
	}
	return nil
}
