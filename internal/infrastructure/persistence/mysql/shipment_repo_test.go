package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/shiptrack/internal/domain/shipment"
)

var shipmentColumns = []string{"id", "tracking_code", "client_id", "client_reference", "status", "created_by"}

func TestShipmentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `shipments`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	// 初始状态历史随运单级联写入,外键回填为新运单ID
	mock.ExpectExec("INSERT INTO `shipment_events` .* ON DUPLICATE KEY UPDATE `shipment_id`=VALUES\\(`shipment_id`\\)").
		WithArgs(10, "created", "Monterrey", shipment.InitialEventComment, 42, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(20, 1))
	mock.ExpectCommit()

	s := shipment.NewShipment("ITP-00001", 7, shipment.Details{ClientReference: "PO-1", Origin: "Monterrey"}, 42)
	require.NoError(t, repo.Create(context.Background(), s))

	assert.Equal(t, uint(10), s.ID)
	require.Len(t, s.Events, 1)
	assert.Equal(t, uint(20), s.Events[0].ID)
	assert.Equal(t, uint(10), s.Events[0].ShipmentID)
}

func TestShipmentRepository_Create_DuplicateTrackingCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `shipments`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ITP-00001' for key 'uk_shipments_tracking_code'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), shipment.NewShipment("ITP-00001", 7, shipment.Details{}, 0))
	assert.ErrorIs(t, err, shipment.ErrTrackingCodeDuplicate)
}

func TestShipmentRepository_FindByTrackingCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM `shipments` WHERE tracking_code = \\? AND `shipments`.`deleted_at` IS NULL ORDER BY `shipments`.`id` LIMIT \\?").
		WithArgs("ITP-00001", 1).
		WillReturnRows(sqlmock.NewRows(shipmentColumns).AddRow(10, "ITP-00001", 7, "PO-1", "created", 42))

	s, err := repo.FindByTrackingCode(ctx, " itp-00001 ")
	require.NoError(t, err)
	assert.Equal(t, uint(10), s.ID)
	assert.Equal(t, shipment.StatusCreated, s.Status)
	assert.Equal(t, uint(42), s.CreatedBy)

	mock.ExpectQuery("SELECT \\* FROM `shipments` WHERE tracking_code = \\?").
		WithArgs("ITP-09999", 1).
		WillReturnRows(sqlmock.NewRows(shipmentColumns))
	_, err = repo.FindByTrackingCode(ctx, "ITP-09999")
	assert.ErrorIs(t, err, shipment.ErrShipmentNotFound)
}

// TestShipmentRepository_FindByReference 同一客户单号多条时取ID最大的一条
func TestShipmentRepository_FindByReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM `shipments` WHERE client_reference = \\? AND `shipments`.`deleted_at` IS NULL ORDER BY id DESC,`shipments`.`id` LIMIT \\?").
		WithArgs("PO-9", 1).
		WillReturnRows(sqlmock.NewRows(shipmentColumns).AddRow(12, "ITP-00004", 7, "PO-9", "created", 0))

	s, err := repo.FindByReference(ctx, "  PO-9 ")
	require.NoError(t, err)
	assert.Equal(t, "ITP-00004", s.TrackingCode)

	// 空单号不查库
	_, err = repo.FindByReference(ctx, "   ")
	assert.ErrorIs(t, err, shipment.ErrShipmentNotFound)
}

func TestShipmentRepository_ListEvents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)

	newer := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT \\* FROM `shipment_events` WHERE shipment_id = \\? ORDER BY created_at DESC, id DESC").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shipment_id", "status", "location", "comment", "created_at"}).
			AddRow(21, 10, "in_transit", "Saltillo", "", newer).
			AddRow(20, 10, "created", "Monterrey", shipment.InitialEventComment, older))

	events, err := repo.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, shipment.StatusInTransit, events[0].Status)
	assert.Equal(t, uint(21), events[0].ID)
	assert.Equal(t, shipment.StatusCreated, events[1].Status)
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))
}
