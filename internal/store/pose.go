package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// StoredPose is a calibrated pose definition.
type StoredPose struct {
	Definition gesture.PoseDefinition `json:"definition"`
	Samples    int                    `json:"samples"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Sample is a raw recorded calibration frame.
type Sample struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"poseId"`
	SampleIndex int             `json:"sampleIndex"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PoseRepository stores calibrated poses and the samples they came from.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

// Save inserts or replaces a calibrated pose together with its samples in
// a single transaction. Earlier samples of the same pose are discarded.
func (r *PoseRepository) Save(def gesture.PoseDefinition, samples []json.RawMessage) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode pose: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(
		`INSERT INTO poses (id, definition, samples, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET definition = excluded.definition, samples = excluded.samples, updated_at = excluded.updated_at`,
		def.ID, string(data), len(samples), now, now,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM pose_samples WHERE pose_id = ?`, def.ID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_samples (pose_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sample := range samples {
		if _, err := stmt.Exec(def.ID, i, string(sample)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves a calibrated pose by id.
func (r *PoseRepository) Get(id string) (*StoredPose, error) {
	row := r.db.QueryRow(`SELECT definition, samples, created_at, updated_at FROM poses WHERE id = ?`, id)
	p, err := scanPose(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List retrieves all calibrated poses ordered by id.
func (r *PoseRepository) List() ([]*StoredPose, error) {
	rows, err := r.db.Query(`SELECT definition, samples, created_at, updated_at FROM poses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StoredPose
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Definitions returns the calibrated pose definitions, ready to layer over
// a catalog with Catalog.WithPoses.
func (r *PoseRepository) Definitions() ([]gesture.PoseDefinition, error) {
	stored, err := r.List()
	if err != nil {
		return nil, err
	}
	out := make([]gesture.PoseDefinition, len(stored))
	for i, p := range stored {
		out[i] = p.Definition
	}
	return out, nil
}

// Samples retrieves the samples a pose was calibrated from.
func (r *PoseRepository) Samples(id string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, pose_id, sample_index, data, created_at
		 FROM pose_samples
		 WHERE pose_id = ?
		 ORDER BY sample_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.PoseID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Delete removes a calibrated pose and its samples.
func (r *PoseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM poses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func scanPose(s scanner) (*StoredPose, error) {
	p := &StoredPose{}
	var data string
	if err := s.Scan(&data, &p.Samples, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &p.Definition); err != nil {
		return nil, fmt.Errorf("failed to decode pose: %w", err)
	}
	return p, nil
}
