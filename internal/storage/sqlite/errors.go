package sqlite

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"scrumboard/internal/lifecycle"
)

func notFound(what string) error {
	return lifecycle.NotFound("%s not found", what)
}

// wrapDBError adds operation context and translates driver errors into
// lifecycle kinds: missing rows become NotFound and unique violations
// become Conflict.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNoRows(err) {
		return fmt.Errorf("%s: %w", op, lifecycle.NotFound("record not found"))
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", op, uniqueConflict(op))
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", op, lifecycle.NotFound("referenced record not found"))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func uniqueConflict(op string) error {
	switch op {
	case "insert project", "update project":
		return lifecycle.Conflict("a project with this title already exists")
	case "insert story", "update story":
		return lifecycle.Conflict("a story with this title already exists in this project")
	case "insert person":
		return lifecycle.Conflict("username is already taken")
	case "insert time log", "update time log":
		return lifecycle.Conflict("a conflicting time log already exists")
	}
	return lifecycle.Conflict("record already exists")
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
