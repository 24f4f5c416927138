package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-reservation/internal/model"
)

// CreateEvent inserts an event row and populates the ID of the passed
// struct from the auto-increment key.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO events (name, venue) VALUES (?, ?)`, e.Name, e.Venue)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetEvent returns the event with the given ID or ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, venue, created_at FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.Venue, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns all events, newest first.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, name, venue, created_at FROM events ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Venue, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
