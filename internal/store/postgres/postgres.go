package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/sale"
	"salesdesk/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertSale(ctx context.Context, aggregate *sale.Sale) error {
	snap := aggregate.Snapshot()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, sale_number, sale_date, customer_id, customer_name,
			branch_id, branch_name, total_amount, cancelled, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, snap.ID, snap.SaleNumber, snap.SaleDate, snap.CustomerID, snap.CustomerName,
		snap.BranchID, snap.BranchName, snap.TotalAmount, snap.Cancelled, snap.CreatedAt, snap.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}

	for position, item := range snap.Items {
		if err := insertItem(ctx, tx, snap.ID, item, position); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	var snap sale.Snapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sale_number, sale_date, customer_id, customer_name,
			branch_id, branch_name, total_amount, cancelled, created_at, updated_at
		FROM sales
		WHERE id = $1
	`, id).Scan(
		&snap.ID,
		&snap.SaleNumber,
		&snap.SaleDate,
		&snap.CustomerID,
		&snap.CustomerName,
		&snap.BranchID,
		&snap.BranchName,
		&snap.TotalAmount,
		&snap.Cancelled,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	normalizeSnapshotTimes(&snap)

	items, err := s.loadItems(ctx, []uuid.UUID{snap.ID})
	if err != nil {
		return nil, err
	}
	snap.Items = items[snap.ID]
	if snap.Items == nil {
		snap.Items = []sale.ItemSnapshot{}
	}

	return sale.FromSnapshot(snap), nil
}

func (s *Store) ListSales(ctx context.Context, offset int, limit int) ([]*sale.Sale, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)::bigint FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, sale_date, customer_id, customer_name,
			branch_id, branch_name, total_amount, cancelled, created_at, updated_at
		FROM sales
		ORDER BY sale_date DESC, created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	snaps := make([]sale.Snapshot, 0, limit)
	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var snap sale.Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.SaleNumber,
			&snap.SaleDate,
			&snap.CustomerID,
			&snap.CustomerName,
			&snap.BranchID,
			&snap.BranchName,
			&snap.TotalAmount,
			&snap.Cancelled,
			&snap.CreatedAt,
			&snap.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		normalizeSnapshotTimes(&snap)
		snaps = append(snaps, snap)
		ids = append(ids, snap.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	itemsByID, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	sales := make([]*sale.Sale, 0, len(snaps))
	for _, snap := range snaps {
		snap.Items = itemsByID[snap.ID]
		if snap.Items == nil {
			snap.Items = []sale.ItemSnapshot{}
		}
		sales = append(sales, sale.FromSnapshot(snap))
	}
	return sales, total, nil
}

// UpdateSale reconciles the full item graph: surviving rows are updated in
// place, rows no longer present in the aggregate are deleted, new rows are
// inserted at their position.
func (s *Store) UpdateSale(ctx context.Context, aggregate *sale.Sale) error {
	snap := aggregate.Snapshot()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET sale_number = $2, sale_date = $3, customer_id = $4, customer_name = $5,
			branch_id = $6, branch_name = $7, total_amount = $8, cancelled = $9, updated_at = $10
		WHERE id = $1
	`, snap.ID, snap.SaleNumber, snap.SaleDate, snap.CustomerID, snap.CustomerName,
		snap.BranchID, snap.BranchName, snap.TotalAmount, snap.Cancelled, snap.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	existing := make(map[uuid.UUID]struct{})
	itemRows, err := tx.QueryContext(ctx, `
		SELECT id FROM sale_items WHERE sale_id = $1
	`, snap.ID)
	if err != nil {
		return err
	}
	for itemRows.Next() {
		var itemID uuid.UUID
		if err := itemRows.Scan(&itemID); err != nil {
			_ = itemRows.Close()
			return err
		}
		existing[itemID] = struct{}{}
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return err
	}
	_ = itemRows.Close()

	keep := make(map[uuid.UUID]struct{}, len(snap.Items))
	for _, item := range snap.Items {
		keep[item.ID] = struct{}{}
	}
	stale := make([]string, 0)
	for itemID := range existing {
		if _, ok := keep[itemID]; !ok {
			stale = append(stale, itemID.String())
		}
	}
	if len(stale) > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM sale_items WHERE sale_id = $1 AND id = ANY($2)
		`, snap.ID, stale)
		if err != nil {
			return err
		}
	}

	fresh := make([]sale.ItemSnapshot, 0)
	for position, item := range snap.Items {
		if _, ok := existing[item.ID]; !ok {
			fresh = append(fresh, item)
			continue
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE sale_items
			SET product_id = $2, product_name = $3, quantity = $4, unit_price = $5,
				discount_percent = $6, total_amount = $7, cancelled = $8, position = $9
			WHERE id = $1
		`, item.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
			item.DiscountPercent, item.TotalAmount, item.Cancelled, position)
		if err != nil {
			return err
		}
	}
	if err := insertFreshItems(ctx, tx, snap.ID, snap.Items, fresh); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) DeleteSale(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) loadItems(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]sale.ItemSnapshot, error) {
	result := make(map[uuid.UUID][]sale.ItemSnapshot, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(saleIDs))
	for _, id := range saleIDs {
		ids = append(ids, id.String())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, id, product_id, product_name, quantity, unit_price,
			discount_percent, total_amount, cancelled
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID uuid.UUID
		var item sale.ItemSnapshot
		if err := rows.Scan(
			&saleID,
			&item.ID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.DiscountPercent,
			&item.TotalAmount,
			&item.Cancelled,
		); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func insertFreshItems(ctx context.Context, tx *sql.Tx, saleID uuid.UUID, all []sale.ItemSnapshot, fresh []sale.ItemSnapshot) error {
	if len(fresh) == 0 {
		return nil
	}
	positions := make(map[uuid.UUID]int, len(all))
	for position, item := range all {
		positions[item.ID] = position
	}
	for _, item := range fresh {
		if err := insertItem(ctx, tx, saleID, item, positions[item.ID]); err != nil {
			return err
		}
	}
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, saleID uuid.UUID, item sale.ItemSnapshot, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sale_items (
			id, sale_id, product_id, product_name, quantity, unit_price,
			discount_percent, total_amount, cancelled, position
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, item.ID, saleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
		item.DiscountPercent, item.TotalAmount, item.Cancelled, position)
	return err
}

func normalizeSnapshotTimes(snap *sale.Snapshot) {
	snap.SaleDate = snap.SaleDate.UTC()
	snap.CreatedAt = snap.CreatedAt.UTC()
	snap.UpdatedAt = snap.UpdatedAt.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
