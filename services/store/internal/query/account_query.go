package query

import (
	"context"
	stderrors "errors"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/projection"
)

// AccountQuery 계정 조회 인터페이스
type AccountQuery interface {
	GetAccount(ctx context.Context, id int64) (*events.AccountSnapshot, error)
	ListAccounts(ctx context.Context, page, pageSize int) (*Page[events.AccountSnapshot], error)
}

type accountQuery struct {
	reader projection.Reader
}

// NewAccountQuery 계정 조회 생성
func NewAccountQuery(reader projection.Reader) AccountQuery {
	return &accountQuery{reader: reader}
}

func (q *accountQuery) GetAccount(ctx context.Context, id int64) (*events.AccountSnapshot, error) {
	account, err := q.reader.GetAccount(ctx, id)
	if stderrors.Is(err, projection.ErrNotFound) {
		return nil, errors.New(errors.ErrCodeAccountNotFound, "account not found")
	}
	if err != nil {
		return nil, readError(err)
	}
	return account, nil
}

func (q *accountQuery) ListAccounts(ctx context.Context, page, pageSize int) (*Page[events.AccountSnapshot], error) {
	accounts, err := q.reader.ListAccounts(ctx)
	if err != nil {
		return nil, readError(err)
	}
	result := paginate(accounts, page, pageSize)
	return &result, nil
}
