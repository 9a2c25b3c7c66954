// Package testutil holds fixtures shared by repository, service and handler tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"anoa.com/studentcommunity/internal/bootstrap"
	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an isolated in-memory SQLite database with the full schema and
// default roles.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and
	// serialises writers the way sqlite expects
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := bootstrap.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	return db
}

// UserOption customises a fixture user.
type UserOption func(*entity.User)

func WithXp(xp int) UserOption {
	return func(u *entity.User) {
		u.Xp = xp
		u.Level = xp/100 + 1
	}
}

func WithLevel(level int) UserOption {
	return func(u *entity.User) { u.Level = level }
}

func WithDepartment(dep string) UserOption {
	return func(u *entity.User) { u.Department = &dep }
}

func AsAdmin() UserOption {
	return func(u *entity.User) { u.Role.Name = entity.RoleAdmin }
}

// CreateUser inserts a user with the given name and rank.
func CreateUser(t *testing.T, db *gorm.DB, name string, rank entity.Rank, opts ...UserOption) *entity.User {
	t.Helper()

	u := &entity.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.test", strings.ToLower(strings.ReplaceAll(name, " ", ".")), uuid.NewString()[:8]),
		PasswordHash: "x",
		Rank:         rank,
		Level:        1,
		Role:         entity.Role{Name: entity.RoleStudent},
	}
	for _, opt := range opts {
		opt(u)
	}

	var role entity.Role
	if err := db.Where("name = ?", u.Role.Name).First(&role).Error; err != nil {
		t.Fatalf("load role %s: %v", u.Role.Name, err)
	}
	u.RoleID = &role.ID
	u.Role = entity.Role{}

	if err := db.Omit("Role").Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	u.Role = role
	return u
}

// Reload fetches a fresh copy of a user.
func Reload(t *testing.T, db *gorm.DB, id uuid.UUID) *entity.User {
	t.Helper()
	var u entity.User
	if err := db.Preload("Role").First(&u, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user %s: %v", id, err)
	}
	return &u
}
