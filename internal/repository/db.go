package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DB はX-Ray対応のデータベースハンドルです
type DB struct {
	*sqlx.DB
}

// DBConfig はデータベース接続の設定です
type DBConfig struct {
	Host     string
	Port     int
	UserName string
	Password string
	DBName   string
}

// TxManager はトランザクション境界を提供します
// サービス層はこのインターフェースを通じて操作を原子的に実行します
type TxManager interface {
	RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// NewDB は新しいデータベース接続を作成します
func NewDB(cfg *DBConfig) (*DB, error) {
	// localhostのDBの場合はSSLを無効化
	sslModeValue := "require"
	if cfg.Host == "localhost" {
		sslModeValue = "disable"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.UserName,
		cfg.Password,
		cfg.DBName,
		sslModeValue,
	)

	// X-Ray対応のSQLコンテキストを作成
	db, err := xray.SQLContext("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with X-Ray: %w", err)
	}

	// コネクションプールの設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 接続テスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("DB connected successfully")

	return &DB{sqlx.NewDb(db, "postgres")}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// RunInTx はトランザクション内でfnを実行します
// fnがエラーを返した場合はロールバック、正常終了した場合はコミットします
func (db *DB) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.RunInTx")
	defer seg.Close(nil)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v, original error: %v", rbErr, err)
		}
		seg.Close(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// isUniqueViolation はPostgresの一意制約違反かを判定します
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
