package persist

import (
	"context"
	"time"
)

type GrantRow struct {
	Account   string
	Privilege string
	Active    bool
	GrantedBy string
	GrantedAt time.Time
}

type GrantRepo struct {
	db *DB
}

func NewGrantRepo(db *DB) *GrantRepo {
	return &GrantRepo{db: db}
}

// LoadForAccount returns all grant rows for an account, active or not.
func (r *GrantRepo) LoadForAccount(ctx context.Context, account string) ([]GrantRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT account, privilege, active, granted_by, granted_at
		 FROM grants WHERE account = $1`, account,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GrantRow
	for rows.Next() {
		var g GrantRow
		if err := rows.Scan(&g.Account, &g.Privilege, &g.Active, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Upsert records one grant or revocation.
func (r *GrantRepo) Upsert(ctx context.Context, g GrantRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO grants (account, privilege, active, granted_by, granted_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (account, privilege)
		 DO UPDATE SET active = $3, granted_by = $4, granted_at = NOW()`,
		g.Account, g.Privilege, g.Active, g.GrantedBy,
	)
	return err
}

// ReplaceSnapshot stores the most recent settled active set for an account.
// Only the latest snapshot is kept; there is no change history.
func (r *GrantRepo) ReplaceSnapshot(ctx context.Context, account string, active []string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO privilege_snapshots (account, active, settled_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (account)
		 DO UPDATE SET active = $2, settled_at = NOW()`,
		account, active,
	)
	return err
}
