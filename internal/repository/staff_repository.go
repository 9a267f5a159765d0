package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

const uniqueViolation = "23505"

// ErrStaffExists is returned by Create when a profile with the id already exists.
var ErrStaffExists = errors.New("staff profile already exists")

// DB is the subset of pgxpool.Pool used by repositories; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StaffRepository handles persistence for staff profiles. Missing rows are
// reported as pgx.ErrNoRows.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffProfile) error
	Update(ctx context.Context, staff *domain.StaffProfile) error
	GetByID(ctx context.Context, id string) (*domain.StaffProfile, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffProfile, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

type staffRepository struct {
	db DB
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DB) StaffRepository {
	return &staffRepository{db: db}
}

const staffColumns = `id, email, full_name, role, COALESCE(department, ''), COALESCE(phone, ''),
        COALESCE(specialization, ''), COALESCE(license_number, ''), is_active, profile_completed,
        created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffProfile) error {
	const query = `
        INSERT INTO staff (id, email, full_name, role, department, phone, specialization, license_number, is_active, profile_completed)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		staff.ID,
		staff.Email,
		staff.FullName,
		string(staff.Role),
		staff.Department,
		staff.Phone,
		staff.Specialization,
		staff.LicenseNumber,
		staff.IsActive,
		staff.ProfileCompleted,
	).Scan(&staff.CreatedAt, &staff.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrStaffExists
	}
	return err
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffProfile) error {
	const query = `
        UPDATE staff
        SET email=$1, full_name=$2, role=$3, department=$4, phone=$5, specialization=$6,
            license_number=$7, is_active=$8, profile_completed=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.db.Exec(ctx, query,
		staff.Email,
		staff.FullName,
		string(staff.Role),
		staff.Department,
		staff.Phone,
		staff.Specialization,
		staff.LicenseNumber,
		staff.IsActive,
		staff.ProfileCompleted,
		staff.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffProfile, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id=$1`
	return scanStaff(r.db.QueryRow(ctx, query, id))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffProfile, error) {
	query := `SELECT ` + staffColumns + ` FROM staff`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffProfile
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func scanStaff(row pgx.Row) (*domain.StaffProfile, error) {
	var staff domain.StaffProfile
	var role string
	if err := row.Scan(
		&staff.ID,
		&staff.Email,
		&staff.FullName,
		&role,
		&staff.Department,
		&staff.Phone,
		&staff.Specialization,
		&staff.LicenseNumber,
		&staff.IsActive,
		&staff.ProfileCompleted,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	staff.Role = domain.Role(role)
	return &staff, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
