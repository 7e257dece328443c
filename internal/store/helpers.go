package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"seqwork/internal/worktype"
)

const instanceColumns = "id, location, work_type, state, staging_path, archive_path, error_message, created_at, updated_at, started_at, completed_at"

func scanInstance(scanner interface{ Scan(dest ...any) error }) (*Instance, error) {
	var (
		id           int64
		location     string
		workTypeStr  string
		stateStr     string
		stagingPath  sql.NullString
		archivePath  sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&location,
		&workTypeStr,
		&stateStr,
		&stagingPath,
		&archivePath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	inst := &Instance{
		ID:           id,
		Location:     location,
		WorkType:     worktype.Type(workTypeStr),
		State:        State(stateStr),
		StagingPath:  stagingPath.String,
		ArchivePath:  archivePath.String,
		ErrorMessage: errorMessage.String,
	}

	created, err := parseTimeString(createdRaw.String)
	if err != nil {
		return nil, fmt.Errorf("instance %d: parse created_at %q: %w", id, createdRaw.String, err)
	}
	inst.CreatedAt = created

	updated, err := parseTimeString(updatedRaw.String)
	if err != nil {
		return nil, fmt.Errorf("instance %d: parse updated_at %q: %w", id, updatedRaw.String, err)
	}
	inst.UpdatedAt = updated

	if startedRaw.Valid {
		started, err := parseTimeString(startedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("instance %d: parse started_at %q: %w", id, startedRaw.String, err)
		}
		inst.StartedAt = &started
	}
	if completedRaw.Valid {
		completed, err := parseTimeString(completedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("instance %d: parse completed_at %q: %w", id, completedRaw.String, err)
		}
		inst.CompletedAt = &completed
	}
	return inst, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
