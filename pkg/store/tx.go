package store

import (
	"fmt"

	"gorm.io/gorm"
)

// Tx is a write handle bound to one open transaction. It is only valid
// inside the function passed to Store.Transaction.
type Tx struct {
	db        *gorm.DB
	batchSize int
}

// Replace deletes every row of T's table and bulk inserts records in
// their given order, in chunks of the configured batch size. The returned
// slice carries the assigned ids.
func Replace[T any](tx *Tx, records []T) ([]T, error) {
	if err := Clear[T](tx); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return records, nil
	}

	if err := tx.db.CreateInBatches(&records, tx.batchSize).Error; err != nil {
		var zero T

		return nil, fmt.Errorf("bulk inserting %T: %w", zero, err)
	}

	return records, nil
}

// Clear deletes every row of T's table and restarts its id sequence, so
// a rebuild from unchanged input assigns the same ids again.
func Clear[T any](tx *Tx) error {
	var zero T

	if err := tx.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&zero).Error; err != nil {
		return fmt.Errorf("clearing %T: %w", zero, err)
	}

	if err := resetSequence(tx.db, &zero); err != nil {
		return fmt.Errorf("resetting id sequence of %T: %w", zero, err)
	}

	return nil
}

// resetSequence restarts the primary key sequence of model's table.
func resetSequence(db *gorm.DB, model any) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return err
	}

	table := stmt.Schema.Table

	switch db.Dialector.Name() {
	case "sqlite":
		return db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
	case "postgres":
		return db.Exec(
			"SELECT setval(pg_get_serial_sequence(?, 'id'), 1, false)",
			`"`+table+`"`,
		).Error
	default:
		return nil
	}
}
