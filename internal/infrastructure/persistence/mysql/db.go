package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境开启SQL日志,生产环境关闭
// 4. database.auto_migrate=true时自动迁移表结构
func NewDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一索引冲突翻译为gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
		log.Info("database schema migrated")
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
// AutoMigrate只会创建表、添加字段和索引,不会删除或修改现有字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ClientModel{},
		&ClientPrefixModel{},
		&ShipmentModel{},
		&ShipmentEventModel{},
	)
}

// ClientModel GORM客户模型
// 设计说明:
// 1. Prefix可为NULL(历史客户未分配前缀),唯一索引对多个NULL不冲突
// 2. 没有软删除:软删除的行仍占用唯一索引,会与前缀可用性检查的结果不一致,停用客户用Active
// 3. LastSequence只通过NextSequence原地递增
type ClientModel struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:200;not null;comment:公司名称"`
	ContactName  string    `gorm:"size:100;comment:联系人"`
	Email        string    `gorm:"size:100;comment:邮箱"`
	Phone        string    `gorm:"size:30;comment:电话"`
	Address      string    `gorm:"size:255;comment:地址"`
	Prefix       *string   `gorm:"uniqueIndex:uk_clients_prefix;size:10;comment:追踪号前缀(NULL表示未分配)"`
	LastSequence int64     `gorm:"not null;default:0;comment:最后签发的序号"`
	Active       bool      `gorm:"not null;default:true;comment:是否启用"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ClientModel) TableName() string {
	return "clients"
}

// ClientPrefixModel 已退役前缀
// 客户改前缀时,签发过追踪号的旧前缀记录在这里,之后只允许原客户重新使用
type ClientPrefixModel struct {
	ID           uint      `gorm:"primaryKey"`
	Prefix       string    `gorm:"uniqueIndex:uk_client_prefixes_prefix;size:10;not null;comment:退役前缀"`
	ClientID     uint      `gorm:"index;not null;comment:原客户ID"`
	LastSequence int64     `gorm:"not null;comment:退役时的最后序号"`
	RetiredAt    time.Time `gorm:"not null;comment:退役时间"`
}

// TableName 指定表名
func (ClientPrefixModel) TableName() string {
	return "client_prefixes"
}

// ShipmentModel GORM运单模型
// TrackingCode唯一索引是追踪号全局唯一的最终保障
type ShipmentModel struct {
	ID                uint                 `gorm:"primaryKey"`
	TrackingCode      string               `gorm:"uniqueIndex:uk_shipments_tracking_code;size:30;not null;comment:追踪号"`
	ClientID          uint                 `gorm:"index;not null;comment:客户ID"`
	ClientReference   string               `gorm:"index;size:100;comment:客户单号"`
	Description       string               `gorm:"type:text;comment:货物描述"`
	WeightKg          *float64             `gorm:"type:decimal(10,2);comment:重量(kg)"`
	Origin            string               `gorm:"size:255;comment:发货地"`
	Destination       string               `gorm:"size:255;comment:目的地"`
	EstimatedDelivery *time.Time           `gorm:"comment:预计送达时间"`
	Status            string               `gorm:"index;size:30;not null;default:created;comment:运单状态"`
	CreatedBy         uint                 `gorm:"comment:创建人"`
	Events            []ShipmentEventModel `gorm:"foreignKey:ShipmentID"`
	CreatedAt         time.Time            `gorm:"index;comment:创建时间"`
	UpdatedAt         time.Time            `gorm:"comment:更新时间"`
	DeletedAt         gorm.DeletedAt       `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ShipmentEventModel GORM运单状态历史模型
type ShipmentEventModel struct {
	ID         uint      `gorm:"primaryKey"`
	ShipmentID uint      `gorm:"index;not null;comment:运单ID"`
	Status     string    `gorm:"size:30;not null;comment:状态"`
	Location   string    `gorm:"size:255;comment:位置"`
	Comment    string    `gorm:"size:500;comment:备注"`
	CreatedBy  uint      `gorm:"comment:操作人"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

// TableName 指定表名
func (ShipmentEventModel) TableName() string {
	return "shipment_events"
}
