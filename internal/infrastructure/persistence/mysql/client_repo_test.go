package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/shiptrack/internal/domain/client"
)

// newMockDB 用sqlmock构造GORM连接,断言实际执行的SQL
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return db, mock
}

var dupPrefixErr = &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ITP' for key 'uk_clients_prefix'"}

func TestClientRepository_NextSequence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}).AddRow(7, "ITP", 41))
	mock.ExpectExec("UPDATE `clients` SET `last_sequence`=last_sequence \\+ \\? WHERE id = \\?").
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	prefix, seq, err := repo.NextSequence(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ITP", prefix)
	assert.Equal(t, int64(42), seq)
}

func TestClientRepository_NextSequence_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}))
	mock.ExpectRollback()

	_, _, err := repo.NextSequence(context.Background(), 99)
	assert.ErrorIs(t, err, client.ErrClientNotFound)
}

func TestClientRepository_NextSequence_NoPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}).AddRow(3, nil, 0))
	mock.ExpectRollback()

	_, _, err := repo.NextSequence(context.Background(), 3)
	assert.ErrorIs(t, err, client.ErrPrefixNotAssigned)
}

// TestClientRepository_NextSequence_JoinsOuterTransaction 外层事务回滚时序号递增一起回滚
func TestClientRepository_NextSequence_JoinsOuterTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	tx := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}).AddRow(7, "ITP", 1))
	mock.ExpectExec("UPDATE `clients` SET `last_sequence`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	insertFailed := errors.New("insert shipment failed")
	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		_, seq, err := repo.NextSequence(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)
		return insertFailed
	})
	assert.ErrorIs(t, err, insertFailed)
}

const retiredCountSQL = "SELECT count\\(\\*\\) FROM `client_prefixes` WHERE prefix = \\?"

func TestClientRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(retiredCountSQL + " FOR SHARE").
		WithArgs("ITP").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `clients`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	c := client.NewClient("IT Piezas", "Ana", "ana@itp.mx", "", "", "ITP")
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, uint(5), c.ID)
}

func TestClientRepository_Create_WithoutPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `clients`").
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	c := client.NewClient("Legacy Co", "", "", "", "", "")
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, uint(6), c.ID)
}

func TestClientRepository_Create_DuplicatePrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(retiredCountSQL).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `clients`").WillReturnError(dupPrefixErr)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), client.NewClient("IT Piezas", "", "", "", "", "ITP"))
	assert.ErrorIs(t, err, client.ErrPrefixDuplicate)
}

// TestClientRepository_Create_RetiredPrefix 其他客户退役的前缀不能再创建
func TestClientRepository_Create_RetiredPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(retiredCountSQL + " FOR SHARE").
		WithArgs("ITP").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), client.NewClient("IT Piezas", "", "", "", "", "ITP"))
	assert.ErrorIs(t, err, client.ErrPrefixDuplicate)
}

func TestClientRepository_CountByPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	ctx := context.Background()

	// 当前前缀已占用时不再查询退役表
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `clients` WHERE prefix = \\?$").
		WithArgs("ITP").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	n, err := repo.CountByPrefix(ctx, "ITP", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `clients` WHERE prefix = \\? AND id <> \\?").
		WithArgs("ITP", 3).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectQuery(retiredCountSQL + " AND client_id <> \\?").
		WithArgs("ITP", 3).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	n, err = repo.CountByPrefix(ctx, "ITP", 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `clients` WHERE prefix = \\?$").
		WithArgs("OLD").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectQuery(retiredCountSQL + "$").
		WithArgs("OLD").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	n, err = repo.CountByPrefix(ctx, "OLD", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func clientRow(id uint, prefix interface{}, lastSequence int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}).AddRow(id, prefix, lastSequence)
}

func TestClientRepository_UpdatePrefix(t *testing.T) {
	const updateSQL = "UPDATE `clients` SET `prefix`=\\?,`updated_at`=\\? WHERE id = \\?"

	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{"成功(旧前缀未签发)", func(m sqlmock.Sqlmock) {
			m.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").WillReturnRows(clientRow(4, "ITP", 0))
			m.ExpectQuery(retiredCountSQL + " AND client_id <> \\? FOR SHARE").WithArgs("ITP2", 4).
				WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
			m.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 1))
			m.ExpectCommit()
		}, nil},
		{"客户不存在", func(m sqlmock.Sqlmock) {
			m.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").
				WillReturnRows(sqlmock.NewRows([]string{"id", "prefix", "last_sequence"}))
			m.ExpectRollback()
		}, client.ErrClientNotFound},
		{"新前缀被其他客户退役", func(m sqlmock.Sqlmock) {
			m.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").WillReturnRows(clientRow(4, "ACM", 3))
			m.ExpectQuery(retiredCountSQL).WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
			m.ExpectRollback()
		}, client.ErrPrefixDuplicate},
		{"前缀冲突", func(m sqlmock.Sqlmock) {
			m.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").WillReturnRows(clientRow(4, "ACM", 0))
			m.ExpectQuery(retiredCountSQL).WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
			m.ExpectExec(updateSQL).WillReturnError(dupPrefixErr)
			m.ExpectRollback()
		}, client.ErrPrefixDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewClientRepository(db)

			mock.ExpectBegin()
			tt.expect(mock)

			err := repo.UpdatePrefix(context.Background(), 4, "ITP2")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// TestClientRepository_UpdatePrefix_RetiresIssuedPrefix 签发过追踪号的旧前缀写入退役表
func TestClientRepository_UpdatePrefix_RetiresIssuedPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `clients` WHERE .* FOR UPDATE").WillReturnRows(clientRow(4, "ITP", 12))
	mock.ExpectQuery(retiredCountSQL).WithArgs("XYZ", 4).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("UPDATE `clients` SET `prefix`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `client_prefixes` .* ON DUPLICATE KEY UPDATE").
		WithArgs("ITP", 4, 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdatePrefix(context.Background(), 4, "XYZ"))
}

func TestClientRepository_ListWithoutPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `clients` WHERE prefix IS NULL ORDER BY id ASC LIMIT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "prefix", "last_sequence", "active"}).
			AddRow(3, "Legacy Co", nil, 0, true).
			AddRow(8, "Old Freight SA", nil, 0, true))

	clients, err := repo.ListWithoutPrefix(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, uint(3), clients[0].ID)
	assert.False(t, clients[0].HasPrefix())
	assert.Equal(t, "Old Freight SA", clients[1].Name)
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, isDuplicateError(dupPrefixErr))
	assert.True(t, isDuplicateError(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateError(&mysqldriver.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateError(errors.New("Duplicate entry")))
	assert.False(t, isDuplicateError(nil))
}
