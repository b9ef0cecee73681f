package handler

import (
	stderrors "errors"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// 커맨드 응답은 쓰기 모델에서 바로 만든다 (프로젝션은 비동기로 따라온다)

func auditView(a domain.Audit) events.Audit {
	return events.Audit{
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		CreatedBy: a.CreatedBy,
		UpdatedAt: a.UpdatedAt,
		UpdatedBy: a.UpdatedBy,
	}
}

func accountView(a *domain.Account) events.AccountSnapshot {
	return events.AccountSnapshot{ID: a.ID, Email: a.Email, Name: a.Name, Role: string(a.Role), Audit: auditView(a.Audit)}
}

func categoryView(c *domain.Category) events.CategorySnapshot {
	return events.CategorySnapshot{ID: c.ID, Name: c.Name, ParentID: c.ParentID, ParentName: c.ParentName, Audit: auditView(c.Audit)}
}

func orchidView(o *domain.Orchid) events.OrchidSnapshot {
	return events.OrchidSnapshot{
		ID:           o.ID,
		Name:         o.Name,
		Description:  o.Description,
		ImageURL:     o.ImageURL,
		Price:        o.Price,
		IsNatural:    o.IsNatural,
		CategoryID:   o.CategoryID,
		CategoryName: o.CategoryName,
		Audit:        auditView(o.Audit),
	}
}

func orderView(o *domain.Order) events.OrderSnapshot {
	lines := make([]events.OrderLineSnapshot, len(o.Details))
	for i, d := range o.Details {
		lines[i] = events.OrderLineSnapshot{
			ID:         d.ID,
			OrchidID:   d.OrchidID,
			OrchidName: d.OrchidName,
			Price:      d.Price,
			Quantity:   d.Quantity,
			LineTotal:  d.LineTotal(),
		}
	}
	return events.OrderSnapshot{
		ID:           o.ID,
		AccountID:    o.AccountID,
		AccountEmail: o.AccountEmail,
		AccountName:  o.AccountName,
		OrderDate:    o.OrderDate,
		Status:       string(o.Status),
		Total:        o.Total,
		Lines:        lines,
		Audit:        auditView(o.Audit),
	}
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(apperrors.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return id, nil
}

func bindBody(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeValidation, "malformed request body", err)
	}
	return nil
}

func bindingError(err error) error {
	var be *echo.BindingError
	if stderrors.As(err, &be) {
		return apperrors.Validation(apperrors.FieldError{Field: be.Field, Message: "invalid value"})
	}
	return apperrors.Wrap(apperrors.ErrCodeValidation, "invalid query parameters", err)
}
