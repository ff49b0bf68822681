package mysql

import (
	"context"

	"gorm.io/gorm"
)

// txKey context中事务DB的键
type txKey struct{}

// TxManager 事务管理器
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 支持嵌套事务(GORM自动使用Savepoint)
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// fn内所有Repository操作都在同一事务中执行,fn返回error时ROLLBACK,返回nil时COMMIT
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    code, err := allocator.NextTrackingCode(ctx, clientID) // 锁定客户行并递增序号
//	    if err != nil {
//	        return err
//	    }
//	    return shipmentRepo.Create(ctx, shipment.NewShipment(code, clientID, d, userID))
//	    // 运单写入失败时序号递增一起回滚,不会留下空号
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		// 已在事务中:使用SAVEPOINT嵌套
		return tx.Transaction(func(inner *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, inner))
		})
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// inTransaction 在事务中执行fn
// ctx已携带事务时直接加入,否则开启新事务
func inTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(tx)
	}
	return db.WithContext(ctx).Transaction(fn)
}
