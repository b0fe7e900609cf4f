// Package dbtest поднимает изолированную sqlite-базу в памяти для тестов.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"blog/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open возвращает мигрированную базу, закрываемую по завершении теста
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, seq.Add(1))

	orm, err := db.OpenSQLite(dsn, "silent")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(orm))

	t.Cleanup(func() {
		_ = db.Close(orm)
	})
	return orm
}
