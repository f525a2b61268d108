package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/model"
)

const (
	entryBuff    = "buff"
	entryGear    = "gear"
	entryAbility = "ability"
)

// CharacterSummary is a lightweight listing row.
type CharacterSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	Level     int32     `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CharacterRepository управляет персонажами в БД.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository создаёт новый CharacterRepository.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create inserts a new character with all its entries.
func (r *CharacterRepository) Create(ctx context.Context, c *model.Character) error {
	d := c.Snapshot()

	base, err := json.Marshal(d.Base)
	if err != nil {
		return fmt.Errorf("encoding base stats of %s: %w", d.ID, err)
	}

	return r.inTx(ctx, d.ID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO characters (id, name, class, level, base, max_hp, current_hp, temp_hp, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID, d.Name, d.Class, d.Level, base, d.MaxHP, d.CurrentHP, d.TempHP, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting character %s: %w", d.ID, err)
		}
		return insertEntries(ctx, tx, d)
	})
}

// Save updates the character row and replaces its entries atomically.
// Returns model.ErrNotFound if the character does not exist.
func (r *CharacterRepository) Save(ctx context.Context, c *model.Character) error {
	d := c.Snapshot()

	base, err := json.Marshal(d.Base)
	if err != nil {
		return fmt.Errorf("encoding base stats of %s: %w", d.ID, err)
	}

	return r.inTx(ctx, d.ID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE characters
			SET name = $2, class = $3, level = $4, base = $5,
			    max_hp = $6, current_hp = $7, temp_hp = $8, updated_at = $9
			WHERE id = $1`,
			d.ID, d.Name, d.Class, d.Level, base, d.MaxHP, d.CurrentHP, d.TempHP, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating character %s: %w", d.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("character %s: %w", d.ID, model.ErrNotFound)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM character_entries WHERE character_id = $1`, d.ID); err != nil {
			return fmt.Errorf("clearing entries of %s: %w", d.ID, err)
		}
		return insertEntries(ctx, tx, d)
	})
}

// LoadByID загружает персонажа по ID.
// Возвращает nil если персонаж не найден (не ошибка).
func (r *CharacterRepository) LoadByID(ctx context.Context, id uuid.UUID) (*model.Character, error) {
	var (
		d    model.Data
		base []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, class, level, base, max_hp, current_hp, temp_hp, created_at, updated_at
		FROM characters
		WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Class, &d.Level, &base, &d.MaxHP, &d.CurrentHP, &d.TempHP, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // NOT ERROR, just not found
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %s: %w", id, err)
	}
	if err := json.Unmarshal(base, &d.Base); err != nil {
		return nil, fmt.Errorf("decoding base stats of %s: %w", id, err)
	}

	if err := r.loadEntries(ctx, &d); err != nil {
		return nil, err
	}

	c, err := model.Restore(d)
	if err != nil {
		return nil, fmt.Errorf("restoring character %s: %w", id, err)
	}
	return c, nil
}

// List returns all characters ordered by name.
func (r *CharacterRepository) List(ctx context.Context) ([]CharacterSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, class, level, updated_at
		FROM characters
		ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CharacterSummary, error) {
		var s CharacterSummary
		err := row.Scan(&s.ID, &s.Name, &s.Class, &s.Level, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning characters: %w", err)
	}
	return out, nil
}

// Delete removes a character and, by cascade, its entries.
// Returns model.ErrNotFound if nothing was deleted.
func (r *CharacterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("character %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (r *CharacterRepository) loadEntries(ctx context.Context, d *model.Data) error {
	rows, err := r.db.Query(ctx, `
		SELECT kind, payload
		FROM character_entries
		WHERE character_id = $1
		ORDER BY kind, position`, d.ID)
	if err != nil {
		return fmt.Errorf("querying entries of %s: %w", d.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind    string
			payload []byte
		)
		if err := rows.Scan(&kind, &payload); err != nil {
			return fmt.Errorf("scanning entry of %s: %w", d.ID, err)
		}

		switch kind {
		case entryBuff:
			var b model.Buff
			if err := json.Unmarshal(payload, &b); err != nil {
				return fmt.Errorf("decoding buff of %s: %w", d.ID, err)
			}
			d.Buffs = append(d.Buffs, b)
		case entryGear:
			var g model.Gear
			if err := json.Unmarshal(payload, &g); err != nil {
				return fmt.Errorf("decoding gear of %s: %w", d.ID, err)
			}
			d.Gear = append(d.Gear, g)
		case entryAbility:
			var a ability.Ability
			if err := json.Unmarshal(payload, &a); err != nil {
				return fmt.Errorf("decoding ability of %s: %w", d.ID, err)
			}
			d.Abilities = append(d.Abilities, a)
		default:
			slog.Warn("skipping unknown character entry", "character", d.ID, "kind", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entries of %s: %w", d.ID, err)
	}
	return nil
}

// insertEntries writes buffs, gear and abilities in one batch.
func insertEntries(ctx context.Context, tx pgx.Tx, d model.Data) error {
	const q = `
		INSERT INTO character_entries (character_id, entry_id, kind, position, payload)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	queue := func(kind, id string, pos int, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", kind, id, err)
		}
		batch.Queue(q, d.ID, id, kind, pos, payload)
		return nil
	}

	for i, b := range d.Buffs {
		if err := queue(entryBuff, b.ID, i, b); err != nil {
			return err
		}
	}
	for i, g := range d.Gear {
		if err := queue(entryGear, g.ID, i, g); err != nil {
			return err
		}
	}
	for i, a := range d.Abilities {
		if err := queue(entryAbility, a.ID, i, a); err != nil {
			return err
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting entries of %s: %w", d.ID, err)
	}
	return nil
}

func (r *CharacterRepository) inTx(ctx context.Context, id uuid.UUID, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for character %s: %w", id, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "character", id, "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction for character %s: %w", id, err)
	}
	return nil
}
