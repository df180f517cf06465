package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db      *sql.DB
	q       dbtx
	dialect Dialect
	inTx    bool
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db, q: db, dialect: DialectPostgres}, nil
}

// NewSQLiteRepository opens an embedded database. Use ":memory:" for tests.
// SQLite allows one writer, so the pool is pinned to a single connection.
func NewSQLiteRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, e3 := db.Exec(pragma); e3 != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, e3)
		}
	}

	return &Repository{db: db, q: db, dialect: DialectSQLite}, nil
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// RunMigrations applies migrationsDir/<dialect>.
func (r *Repository) RunMigrations(migrationsDir string) error {
	var (
		driver database.Driver
		err    error
	)
	switch r.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", r.dialect)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.Join(migrationsDir, string(r.dialect))),
		string(r.dialect),
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn against a repository bound to one transaction. The
// transaction commits only if fn returns nil. Nested calls join the
// outer transaction.
func (r *Repository) InTx(ctx context.Context, fn func(RepoInterface) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{db: r.db, q: tx, dialect: r.dialect, inTx: true}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.inTx {
		return nil
	}
	return r.db.Close()
}

type CatalogStore interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	DecrementStock(ctx context.Context, productID int64, qty int32) error
	SetStock(ctx context.Context, productID int64, stock int32) error
	UpdateProductPrice(ctx context.Context, productID int64, price int64) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreditLootCoins(ctx context.Context, userID int64, amount int64) error
	DebitLootCoins(ctx context.Context, userID int64, amount int64) error
}

type CartStore interface {
	GetCartLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	GetCartItem(ctx context.Context, userID, productID int64) (*domain.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID int64, qty int32) (int32, error)
	SetCartItemQuantity(ctx context.Context, userID, productID int64, qty int32) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error)
}

type CouponStore interface {
	CreateCoupon(ctx context.Context, c *domain.Coupon) error
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	ListCouponsByUser(ctx context.Context, userID int64) ([]*domain.Coupon, error)
	DeactivateCoupon(ctx context.Context, code string) (bool, error)
}

type OutboxStore interface {
	InsertOutboxEvent(ctx context.Context, aggregateID, eventType string, payload any) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type RepoInterface interface {
	CatalogStore
	UserStore
	CartStore
	OrderStore
	CouponStore
	OutboxStore

	InTx(ctx context.Context, fn func(RepoInterface) error) error
	Ping(ctx context.Context) error
	Close() error
}

var _ RepoInterface = (*Repository)(nil)
