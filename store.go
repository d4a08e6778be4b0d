package directory

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenDB opens the backing database for the credential store.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// InitSchema creates the users table when it does not exist yet. Proper
// migrations are out of scope; this keeps dev and test bootstrap cheap.
func InitSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create users table")
	}

	return nil
}

// SeedAdmin ensures an ACTIVE admin account exists for bootstrap
// deployments. It is a no-op when the email is already registered.
func SeedAdmin(ctx context.Context, users Users, hasher *Hasher, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, nil
	}

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	return users.Create(ctx, &User{
		Email:        NormalizeEmail(email),
		Username:     DeriveUsername(email),
		PasswordHash: hash,
		Role:         RoleAdmin,
		Status:       UserStatusActive,
	})
}
