package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

const roleConstraintName = "staff_role_check"

// Execer runs statements; *pgxpool.Pool and pgxmock pools both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// RunMigrations executes the SQL files in dir in lexical order, then
// regenerates the role constraint from the domain role list.
func RunMigrations(ctx context.Context, db Execer, dir string, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		logger.Info("applying migration", zap.String("file", name))
		if _, err := db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	if err := SyncRoleConstraint(ctx, db, logger); err != nil {
		return err
	}

	logger.Info("migrations applied", zap.Int("count", len(filenames)))
	return nil
}

// SyncRoleConstraint replaces the staff role CHECK constraint with one built
// from domain.Roles().
func SyncRoleConstraint(ctx context.Context, db Execer, logger *zap.Logger) error {
	if _, err := db.Exec(ctx, RoleConstraintSQL()); err != nil {
		return fmt.Errorf("sync role constraint: %w", err)
	}
	logger.Info("role constraint synced", zap.Int("roles", len(domain.Roles())))
	return nil
}

// RoleConstraintSQL renders the DDL for the role constraint.
func RoleConstraintSQL() string {
	roles := domain.Roles()
	quoted := make([]string, len(roles))
	for i, role := range roles {
		quoted[i] = "'" + strings.ReplaceAll(string(role), "'", "''") + "'"
	}
	return fmt.Sprintf(
		"ALTER TABLE staff DROP CONSTRAINT IF EXISTS %[1]s;\nALTER TABLE staff ADD CONSTRAINT %[1]s CHECK (role IN (%[2]s));",
		roleConstraintName,
		strings.Join(quoted, ", "),
	)
}
