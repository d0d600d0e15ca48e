package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/finclaw/internal/store"
	"github.com/user/finclaw/internal/types"
)

func (s *Store) CreateMessage(ctx context.Context, msg *types.Message) error {
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO messages (id, owner_id, thread_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.OwnerID, msg.ThreadID, msg.Role, msg.Content, metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, owner types.OwnerID, thread types.ThreadID, limit int) ([]*types.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, thread_id, role, content, metadata, created_at
		FROM messages
		WHERE owner_id = $1 AND thread_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		owner, thread, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// The query returns newest-first; callers want oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) ListMessages(ctx context.Context, owner types.OwnerID, thread types.ThreadID) ([]*types.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, thread_id, role, content, metadata, created_at
		FROM messages
		WHERE owner_id = $1 AND thread_id = $2
		ORDER BY created_at ASC, id ASC`,
		owner, thread,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*types.Message, error) {
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		msg := &types.Message{}
		var metadata []byte
		if err := rows.Scan(&msg.ID, &msg.OwnerID, &msg.ThreadID, &msg.Role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *Store) CreateThread(ctx context.Context, thread *types.Thread) error {
	if thread.ID == "" {
		thread.ID = types.NewThreadID()
	}
	if thread.Title == "" {
		thread.Title = types.DefaultThreadTitle
	}
	if thread.Context == "" {
		thread.Context = types.ContextAll
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	if thread.LastMessageAt.IsZero() {
		thread.LastMessageAt = thread.CreatedAt
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO threads (id, owner_id, title, context, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		thread.ID, thread.OwnerID, thread.Title, thread.Context, thread.LastMessageAt, thread.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

func (s *Store) GetThread(ctx context.Context, owner types.OwnerID, id types.ThreadID) (*types.Thread, error) {
	thread := &types.Thread{}
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, title, context, last_message_at, created_at
		FROM threads
		WHERE owner_id = $1 AND id = $2`,
		owner, id,
	).Scan(&thread.ID, &thread.OwnerID, &thread.Title, &thread.Context, &thread.LastMessageAt, &thread.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query thread: %w", err)
	}
	return thread, nil
}

func (s *Store) ResolveThread(ctx context.Context, owner types.OwnerID) (*types.Thread, error) {
	thread := &types.Thread{}
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, title, context, last_message_at, created_at
		FROM threads
		WHERE owner_id = $1
		ORDER BY last_message_at DESC
		LIMIT 1`,
		owner,
	).Scan(&thread.ID, &thread.OwnerID, &thread.Title, &thread.Context, &thread.LastMessageAt, &thread.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		thread = &types.Thread{OwnerID: owner}
		if err := s.CreateThread(ctx, thread); err != nil {
			return nil, err
		}
		return thread, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest thread: %w", err)
	}
	return thread, nil
}

func (s *Store) ListThreads(ctx context.Context, owner types.OwnerID) ([]*types.Thread, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, title, context, last_message_at, created_at
		FROM threads
		WHERE owner_id = $1
		ORDER BY last_message_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var out []*types.Thread
	for rows.Next() {
		thread := &types.Thread{}
		if err := rows.Scan(&thread.ID, &thread.OwnerID, &thread.Title, &thread.Context, &thread.LastMessageAt, &thread.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, thread)
	}
	return out, rows.Err()
}

func (s *Store) DeleteThread(ctx context.Context, owner types.OwnerID, id types.ThreadID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM threads WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetThreadTitle(ctx context.Context, owner types.OwnerID, id types.ThreadID, title string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE threads SET title = $3 WHERE owner_id = $1 AND id = $2`,
		owner, id, title,
	)
	if err != nil {
		return fmt.Errorf("update thread title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetThreadContext(ctx context.Context, owner types.OwnerID, id types.ThreadID, filter types.ContextFilter) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE threads SET context = $3 WHERE owner_id = $1 AND id = $2`,
		owner, id, filter,
	)
	if err != nil {
		return fmt.Errorf("update thread context: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchThread(ctx context.Context, owner types.OwnerID, id types.ThreadID, at time.Time) error {
	// GREATEST keeps last_message_at monotonic under concurrent turns.
	tag, err := s.db.Exec(ctx, `
		UPDATE threads SET last_message_at = GREATEST(last_message_at, $3)
		WHERE owner_id = $1 AND id = $2`,
		owner, id, at,
	)
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
