package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"seqwork/internal/worktype"
)

// ErrNotFound indicates no work instance exists for the requested id.
var ErrNotFound = errors.New("work instance not found")

// InsertIfAbsent records a new queued instance for key unless the key already
// has an active instance, or a completed one and repeatable is false. The
// returned instance is the one that decided the disposition: the freshly
// inserted row for Created, the existing row otherwise.
func (s *Store) InsertIfAbsent(ctx context.Context, key worktype.Key, repeatable bool) (*Instance, Disposition, error) {
	ctx = ensureContext(ctx)

	var (
		inst        *Instance
		disposition Disposition
	)
	err := retryOnBusy(ctx, func() error {
		var txErr error
		inst, disposition, txErr = s.insertIfAbsentOnce(ctx, key, repeatable)
		return txErr
	})
	if err != nil {
		return nil, "", err
	}
	return inst, disposition, nil
}

func (s *Store) insertIfAbsentOnce(ctx context.Context, key worktype.Key, repeatable bool) (*Instance, Disposition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if existing, err := queryKeyInstance(ctx, tx, key,
		"state IN (?, ?)", StateQueued, StateStarted); err != nil {
		return nil, "", err
	} else if existing != nil {
		return existing, DispositionAlreadyActive, nil
	}

	if !repeatable {
		if completed, err := queryKeyInstance(ctx, tx, key,
			"state = ?", StateCompleted); err != nil {
			return nil, "", err
		} else if completed != nil {
			return completed, DispositionAlreadyCompleted, nil
		}
	}

	now := nowString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO work_instances (location, work_type, state, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		key.Location, string(key.Type), StateQueued, now, now,
	)
	if err != nil {
		// A concurrent enqueue of the same key wins the unique index race.
		if isUniqueViolation(err) {
			_ = tx.Rollback()
			existing, qerr := s.activeInstance(ctx, key)
			if qerr != nil {
				return nil, "", qerr
			}
			if existing == nil {
				return nil, "", fmt.Errorf("enqueue %s: %w", key, err)
			}
			return existing, DispositionAlreadyActive, nil
		}
		return nil, "", fmt.Errorf("insert instance for %s: %w", key, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("read inserted id: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		"SELECT "+instanceColumns+" FROM work_instances WHERE id = ?", id)
	inst, err := scanInstance(row)
	if err != nil {
		return nil, "", fmt.Errorf("reload inserted instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit enqueue: %w", err)
	}
	return inst, DispositionCreated, nil
}

func queryKeyInstance(ctx context.Context, tx *sql.Tx, key worktype.Key, stateClause string, stateArgs ...any) (*Instance, error) {
	args := append([]any{key.Location, string(key.Type)}, stateArgs...)
	row := tx.QueryRowContext(ctx,
		"SELECT "+instanceColumns+" FROM work_instances WHERE location = ? AND work_type = ? AND "+stateClause+
			" ORDER BY id DESC LIMIT 1", args...)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query instance for %s: %w", key, err)
	}
	return inst, nil
}

func (s *Store) activeInstance(ctx context.Context, key worktype.Key) (*Instance, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+instanceColumns+" FROM work_instances WHERE location = ? AND work_type = ? AND state IN (?, ?) LIMIT 1",
		key.Location, string(key.Type), StateQueued, StateStarted)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active instance for %s: %w", key, err)
	}
	return inst, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// Transition moves the instance from one state to another with a single
// conditional update. It reports false when the instance was not in the
// expected state, which is how concurrent claimants lose the race.
func (s *Store) Transition(ctx context.Context, id int64, from, to State) (bool, error) {
	return s.transition(ctx, id, from, to, "")
}

// TransitionFailed marks a started instance failed and records the message
// that explains why.
func (s *Store) TransitionFailed(ctx context.Context, id int64, message string) (bool, error) {
	return s.transition(ctx, id, StateStarted, StateFailed, message)
}

func (s *Store) transition(ctx context.Context, id int64, from, to State, message string) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("transition %s -> %s is not allowed", from, to)
	}

	now := nowString()
	var sb strings.Builder
	sb.WriteString("UPDATE work_instances SET state = ?, updated_at = ?")
	args := []any{to, now}
	if to == StateStarted {
		sb.WriteString(", started_at = ?")
		args = append(args, now)
	}
	if to.IsTerminal() {
		sb.WriteString(", completed_at = ?")
		args = append(args, now)
	}
	if message != "" {
		sb.WriteString(", error_message = ?")
		args = append(args, message)
	}
	sb.WriteString(" WHERE id = ? AND state = ?")
	args = append(args, id, from)

	res, err := s.execWithRetry(ctx, sb.String(), args...)
	if err != nil {
		return false, fmt.Errorf("transition instance %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition instance %d: %w", id, err)
	}
	return affected == 1, nil
}

// UpdatePaths records the staging and archive directories chosen for an
// instance. Empty values clear the corresponding column.
func (s *Store) UpdatePaths(ctx context.Context, id int64, stagingPath, archivePath string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE work_instances SET staging_path = ?, archive_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(stagingPath), nullableString(archivePath), nowString(), id,
	); err != nil {
		return fmt.Errorf("update paths for instance %d: %w", id, err)
	}
	return nil
}

// Get returns the instance with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Instance, error) {
	ctx = ensureContext(ctx)
	var inst *Instance
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+instanceColumns+" FROM work_instances WHERE id = ?", id)
		var scanErr error
		inst, scanErr = scanInstance(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %d: %w", id, err)
	}
	return inst, nil
}

// FindByState returns instances in any of the given states, oldest first.
func (s *Store) FindByState(ctx context.Context, states ...State) ([]*Instance, error) {
	ctx = ensureContext(ctx)
	if len(states) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(states))
	for _, state := range states {
		args = append(args, state)
	}
	query := "SELECT " + instanceColumns + " FROM work_instances WHERE state IN (" +
		makePlaceholders(len(states)) + ") ORDER BY id ASC"
	instances, err := s.queryInstances(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find instances by state: %w", err)
	}
	return instances, nil
}

// History returns every instance ever recorded for key, newest first.
// Instances are never deleted, so this is the full audit trail.
func (s *Store) History(ctx context.Context, key worktype.Key) ([]*Instance, error) {
	instances, err := s.queryInstances(ctx,
		"SELECT "+instanceColumns+" FROM work_instances WHERE location = ? AND work_type = ? ORDER BY id DESC",
		key.Location, string(key.Type))
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", key, err)
	}
	return instances, nil
}

// ListByLocation returns every instance for a dataset location across all
// work types, newest first.
func (s *Store) ListByLocation(ctx context.Context, location string) ([]*Instance, error) {
	instances, err := s.queryInstances(ctx,
		"SELECT "+instanceColumns+" FROM work_instances WHERE location = ? ORDER BY id DESC", location)
	if err != nil {
		return nil, fmt.Errorf("list instances for %s: %w", location, err)
	}
	return instances, nil
}

// ListRecent returns the newest instances regardless of state.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Instance, error) {
	if limit <= 0 {
		limit = 50
	}
	instances, err := s.queryInstances(ctx,
		"SELECT "+instanceColumns+" FROM work_instances ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list recent instances: %w", err)
	}
	return instances, nil
}

func (s *Store) queryInstances(ctx context.Context, query string, args ...any) ([]*Instance, error) {
	ctx = ensureContext(ctx)

	var instances []*Instance
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		instances = instances[:0]
		for rows.Next() {
			inst, err := scanInstance(rows)
			if err != nil {
				return err
			}
			instances = append(instances, inst)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// Cancel moves a queued instance to cancelled. It reports false when the
// instance was no longer queued.
func (s *Store) Cancel(ctx context.Context, id int64) (bool, error) {
	return s.Transition(ctx, id, StateQueued, StateCancelled)
}

// Stats returns instance counts grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	ctx = ensureContext(ctx)

	stats := make(map[State]int, len(allStates))
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT state, COUNT(1) FROM work_instances GROUP BY state")
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(stats)
		for rows.Next() {
			var (
				state State
				count int
			)
			if err := rows.Scan(&state, &count); err != nil {
				return err
			}
			stats[state] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("instance stats: %w", err)
	}
	return stats, nil
}
