package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"PulseLoop/internal/model"
	"PulseLoop/internal/repository/rdb"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

// NewDB 每个测试一个独立的内存库，单连接避免 sqlite 写锁冲突
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), rdb.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, rdb.Migrate(db))
	return db
}

// SeedUser 直接落库一个指定角色的用户
func SeedUser(t *testing.T, db *gorm.DB, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + fmt.Sprintf("+%d@pulse.test", seq.Add(1)),
		Password: "x",
		Role:     role,

		ExpertiseLevel: model.ExpertiseBeginner,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
