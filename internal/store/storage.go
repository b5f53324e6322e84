package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Orders interface {
		Create(context.Context, *Order) error
		GetByID(context.Context, int64) (*Order, error)
		GetByTransactionID(context.Context, string) (*Order, error)
		SetTransactionID(context.Context, int64, string) error
		UpdateStatus(context.Context, int64, string) error
		SetUnderReview(context.Context, int64, bool) error
		SetRefunded(context.Context, int64, decimal.Decimal) error
		AddNote(context.Context, int64, string) error
		Notes(context.Context, int64) ([]Note, error)
		Delete(context.Context, int64) error
	}
}

func NewStorage(db *pgxpool.Pool) Storage {
	return Storage{
		Orders: &OrdersStore{db},
	}
}
