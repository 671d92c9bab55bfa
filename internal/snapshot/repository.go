// Package snapshot persists the shopping store's state to SQLite so it can
// survive a restart. The store stays the single source of truth; the
// database only ever receives whole snapshots.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/shopping"
)

const metaLastIssuedID = "last_issued_list_id"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Load reads the last saved state. An empty database yields an empty state.
func (r *Repository) Load(ctx context.Context) (shopping.State, error) {
	st := shopping.State{Lists: []model.ShoppingList{}}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, category FROM shopping_lists ORDER BY position ASC`)
	if err != nil {
		return st, fmt.Errorf("load lists: %w", err)
	}
	index := make(map[int64]int)
	for rows.Next() {
		l := model.ShoppingList{Items: []model.Item{}}
		if err := rows.Scan(&l.ID, &l.Name, &l.Category); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan list: %w", err)
		}
		index[l.ID] = len(st.Lists)
		st.Lists = append(st.Lists, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("load lists: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT list_id, id, name, quantity, purchased FROM shopping_items ORDER BY list_id ASC, position ASC`)
	if err != nil {
		return st, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID int64
		var it model.Item
		var purchased int
		if err := rows.Scan(&listID, &it.ID, &it.Name, &it.Quantity, &purchased); err != nil {
			return st, fmt.Errorf("scan item: %w", err)
		}
		it.Purchased = purchased != 0
		i, ok := index[listID]
		if !ok {
			continue
		}
		st.Lists[i].Items = append(st.Lists[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("load items: %w", err)
	}

	var raw string
	err = r.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaLastIssuedID).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return st, fmt.Errorf("load meta: %w", err)
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return st, fmt.Errorf("parse %s: %w", metaLastIssuedID, err)
		}
		st.LastIssuedID = id
	}
	for _, l := range st.Lists {
		st.LastIssuedID = max(st.LastIssuedID, l.ID)
	}

	return st, nil
}

// Save replaces everything stored with st in a single transaction.
func (r *Repository) Save(ctx context.Context, st shopping.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_lists`); err != nil {
		return fmt.Errorf("clear lists: %w", err)
	}

	listStmt, err := tx.PrepareContext(ctx, `INSERT INTO shopping_lists (id, name, category, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare list insert: %w", err)
	}
	defer listStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO shopping_items (list_id, id, name, quantity, purchased, position) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for pos, l := range st.Lists {
		if _, err := listStmt.ExecContext(ctx, l.ID, l.Name, l.Category, pos); err != nil {
			return fmt.Errorf("insert list %d: %w", l.ID, err)
		}
		for ipos, it := range l.Items {
			purchased := 0
			if it.Purchased {
				purchased = 1
			}
			if _, err := itemStmt.ExecContext(ctx, l.ID, it.ID, it.Name, it.Quantity, purchased, ipos); err != nil {
				return fmt.Errorf("insert item %d/%d: %w", l.ID, it.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO store_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastIssuedID, strconv.FormatInt(st.LastIssuedID, 10),
	)
	if err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
