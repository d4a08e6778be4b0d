package directory

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ListUsersParams drives pagination and filtering on the directory listing.
type ListUsersParams struct {
	Page    int
	PerPage int
	Role    UserRole
	Status  UserStatus
	Campus  string
	// Query matches against email, username and names.
	Query string
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Normalize clamps pagination to sane bounds.
func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
}

// Users is the credential store adapter. Each operation is atomic at the
// single record level; the read-then-write pattern in provisioning is not
// transactional by design, races surface as conflicts.
type Users interface {
	// GetByEmail looks up an account by normalized email, excluding soft
	// deleted records.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByID returns the record regardless of flags; callers are expected
	// to re-check Deleted and Status themselves.
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListUsersParams) ([]*User, int, error)
	TrackSuccessfulLogin(ctx context.Context, id int64) error
}

type users struct {
	db   *bun.DB
	node *snowflake.Node
}

var _ Users = (*users)(nil)

// NewUsersRepository builds the bun backed store adapter. The snowflake node
// mints the stable numeric account ids.
func NewUsersRepository(db *bun.DB, node *snowflake.Node) Users {
	return &users{db: db, node: node}
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.is_deleted = ?", false).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"email": email})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to query user by email")
	}

	return record, nil
}

func (r *users) GetByID(ctx context.Context, id int64) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to query user by id")
	}

	return record, nil
}

func (r *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record, r.node)

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, ConflictFrom(err)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return record, nil
}

func (r *users) Update(ctx context.Context, record *User) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := r.db.NewUpdate().
		Model(record).
		WherePK().
		OmitZero().
		Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ConflictFrom(err)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": record.ID})
	}

	return r.GetByID(ctx, record.ID)
}

func (r *users) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now()
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_deleted = ?", true).
		Set("status = ?", UserStatusDeleted).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func (r *users) List(ctx context.Context, params ListUsersParams) ([]*User, int, error) {
	params.Normalize()

	records := []*User{}
	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_deleted = ?", false)

	if params.Role != "" {
		q = q.Where("?TableAlias.user_role = ?", params.Role)
	}
	if params.Status != "" {
		q = q.Where("?TableAlias.status = ?", params.Status)
	}
	if params.Campus != "" {
		q = q.Where("?TableAlias.campus = ?", params.Campus)
	}
	if params.Query != "" {
		needle := "%" + strings.ToLower(strings.TrimSpace(params.Query)) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("lower(?TableAlias.email) LIKE ?", needle).
				WhereOr("lower(?TableAlias.username) LIKE ?", needle).
				WhereOr("lower(?TableAlias.first_name) LIKE ?", needle).
				WhereOr("lower(?TableAlias.last_name) LIKE ?", needle)
		})
	}

	total, err := q.
		Order("usr.created_at DESC").
		Limit(params.PerPage).
		Offset((params.Page - 1) * params.PerPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	return records, total, nil
}

func (r *users) TrackSuccessfulLogin(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", now).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Exec(ctx)

	return err
}

func prepareUserDefaults(record *User, node *snowflake.Node) {
	if record == nil {
		return
	}

	if record.ID == 0 && node != nil {
		record.ID = node.Generate().Int64()
	}

	record.Email = NormalizeEmail(record.Email)
	if record.Username == "" {
		record.Username = DeriveUsername(record.Email)
	}
	if record.Role == "" {
		record.Role = RoleOfficeHead
	}
	record.EnsureStatus()

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}
