package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/hand"
)

// StoredBinding is a binding with its bookkeeping timestamps.
type StoredBinding struct {
	binding.Binding
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

const bindingColumns = `id, gesture, hand, action, context, cooldown_ms, created_at, updated_at`

// Create inserts a new binding. The binding must be valid.
func (r *BindingRepository) Create(b binding.Binding) (*StoredBinding, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	action, context, err := encodeBinding(b)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT INTO bindings (`+bindingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Gesture, string(b.Hand), action, context, b.CooldownMs, now, now,
	)
	if err != nil {
		return nil, err
	}
	return &StoredBinding{Binding: b, CreatedAt: now, UpdatedAt: now}, nil
}

// Get retrieves a binding by its ID.
func (r *BindingRepository) Get(id string) (*StoredBinding, error) {
	row := r.db.QueryRow(`SELECT `+bindingColumns+` FROM bindings WHERE id = ?`, id)
	sb, err := scanBinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sb, err
}

// List retrieves all bindings in creation order.
func (r *BindingRepository) List() ([]*StoredBinding, error) {
	rows, err := r.db.Query(`SELECT ` + bindingColumns + ` FROM bindings ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StoredBinding
	for rows.Next() {
		sb, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// All returns the plain bindings, ready to stage on a dispatcher.
func (r *BindingRepository) All() ([]binding.Binding, error) {
	stored, err := r.List()
	if err != nil {
		return nil, err
	}
	out := make([]binding.Binding, len(stored))
	for i, sb := range stored {
		out[i] = sb.Binding
	}
	return out, nil
}

// Update replaces an existing binding.
func (r *BindingRepository) Update(b binding.Binding) error {
	if err := b.Validate(); err != nil {
		return err
	}
	action, context, err := encodeBinding(b)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE bindings SET gesture = ?, hand = ?, action = ?, context = ?, cooldown_ms = ?, updated_at = ?
		 WHERE id = ?`,
		b.Gesture, string(b.Hand), action, context, b.CooldownMs, time.Now(), b.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a binding by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func encodeBinding(b binding.Binding) (action, context string, err error) {
	a, err := json.Marshal(b.Action)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode action: %w", err)
	}
	scopes := b.Context
	if scopes == nil {
		scopes = []string{}
	}
	c, err := json.Marshal(scopes)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode context: %w", err)
	}
	return string(a), string(c), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(s scanner) (*StoredBinding, error) {
	sb := &StoredBinding{}
	var side, action, context string
	err := s.Scan(&sb.ID, &sb.Gesture, &side, &action, &context, &sb.CooldownMs, &sb.CreatedAt, &sb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sb.Hand = hand.Side(side)
	if err := json.Unmarshal([]byte(action), &sb.Action); err != nil {
		return nil, fmt.Errorf("binding %s: failed to decode action: %w", sb.ID, err)
	}
	if err := json.Unmarshal([]byte(context), &sb.Context); err != nil {
		return nil, fmt.Errorf("binding %s: failed to decode context: %w", sb.ID, err)
	}
	if len(sb.Context) == 0 {
		sb.Context = nil
	}
	return sb, nil
}
