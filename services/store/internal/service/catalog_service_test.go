package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
)

func TestCategoryService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.seedCategory("Orchids", nil)
	svc := f.categoryService()

	f.expectCommit()
	child, err := svc.Create(ctx, CreateCategoryCommand{Name: "  Phalaenopsis ", ParentID: int64Ref(root.ID), Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "Phalaenopsis", child.Name)
	assert.Equal(t, "Orchids", child.ParentName)

	var evt events.CategoryUpsertedEvent
	require.NoError(t, json.Unmarshal(f.mem.outbox[0].Payload, &evt))
	assert.Equal(t, child.ID, evt.Category.ID)
	assert.Equal(t, root.ID, *evt.Category.ParentID)

	t.Run("duplicate name is rejected case-insensitively", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Create(ctx, CreateCategoryCommand{Name: "PHALAENOPSIS", Actor: "admin"})
		assert.Equal(t, errors.ErrCodeDuplicate, errors.CodeOf(err))
	})

	t.Run("missing parent", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Create(ctx, CreateCategoryCommand{Name: "Lost", ParentID: int64Ref(999), Actor: "admin"})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateCategoryCommand{Name: "   ", Actor: "admin"})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	})
}

func TestCategoryService_UpdateRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.seedCategory("Orchids", nil)
	mid := f.seedCategory("Epiphytes", int64Ref(root.ID))
	leaf := f.seedCategory("Cattleya", int64Ref(mid.ID))
	svc := f.categoryService()

	t.Run("self parent", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdateCategoryCommand{ID: root.ID, Name: "Orchids", ParentID: int64Ref(root.ID)})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	})

	t.Run("descendant as parent", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Update(ctx, UpdateCategoryCommand{ID: root.ID, Name: "Orchids", ParentID: int64Ref(leaf.ID)})
		var domainErr *errors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, errors.ErrCodeValidation, domainErr.Code)
		assert.Equal(t, "parentId", domainErr.Details[0].Field)
	})

	t.Run("move leaf to root is fine", func(t *testing.T) {
		f.expectCommit()
		moved, err := svc.Update(ctx, UpdateCategoryCommand{ID: leaf.ID, Name: "Cattleya", ParentID: int64Ref(root.ID), Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, root.ID, *moved.ParentID)
		assert.Equal(t, "admin", f.mem.categories[leaf.ID].UpdatedBy)
	})

	t.Run("rename keeps its own name", func(t *testing.T) {
		f.expectCommit()
		_, err := svc.Update(ctx, UpdateCategoryCommand{ID: mid.ID, Name: "epiphytes", ParentID: nil, Actor: "admin"})
		require.NoError(t, err)
		assert.Nil(t, f.mem.categories[mid.ID].ParentID)
	})
}

func TestCategoryService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.seedCategory("Orchids", nil)
	withChild := f.seedCategory("Terrestrial", int64Ref(root.ID))
	f.seedCategory("Paphiopedilum", int64Ref(withChild.ID))
	withOrchid := f.seedCategory("Vanda", int64Ref(root.ID))
	f.seedOrchid("Blue Vanda", "50000", withOrchid.ID)
	empty := f.seedCategory("Empty", nil)
	svc := f.categoryService()

	f.expectRollback()
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(svc.Delete(ctx, withChild.ID, "admin")))

	f.expectRollback()
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(svc.Delete(ctx, withOrchid.ID, "admin")))

	f.expectCommit()
	require.NoError(t, svc.Delete(ctx, empty.ID, "admin"))
	assert.False(t, f.mem.categories[empty.ID].IsActive)

	f.expectRollback()
	assert.Equal(t, errors.ErrCodeCategoryNotFound, errors.CodeOf(svc.Delete(ctx, empty.ID, "admin")))
}

func TestOrchidService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.seedCategory("Phalaenopsis", nil)
	svc := f.orchidService()

	t.Run("price must be positive", func(t *testing.T) {
		_, err := svc.Create(ctx, OrchidCommand{Name: "Free", Price: decimal.Zero, CategoryID: category.ID})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	})

	f.expectCommit()
	created, err := svc.Create(ctx, OrchidCommand{
		Name:       "White Moth",
		Price:      decimal.RequireFromString("150000"),
		IsNatural:  true,
		CategoryID: category.ID,
		Actor:      "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Phalaenopsis", created.CategoryName)

	t.Run("duplicate name", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Create(ctx, OrchidCommand{Name: "white moth", Price: decimal.NewFromInt(1), CategoryID: category.ID})
		assert.Equal(t, errors.ErrCodeDuplicate, errors.CodeOf(err))
	})

	t.Run("unknown category", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Create(ctx, OrchidCommand{Name: "Nowhere", Price: decimal.NewFromInt(1), CategoryID: 404})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	})

	t.Run("soft delete frees the name", func(t *testing.T) {
		f.expectCommit()
		require.NoError(t, svc.Delete(ctx, created.ID, "admin"))
		assert.False(t, f.mem.orchids[created.ID].IsActive)

		f.expectCommit()
		_, err := svc.Create(ctx, OrchidCommand{Name: "White Moth", Price: decimal.NewFromInt(1), CategoryID: category.ID})
		require.NoError(t, err)
	})

	t.Run("deleted orchid cannot be updated", func(t *testing.T) {
		f.expectRollback()
		_, err := svc.Update(ctx, OrchidCommand{ID: created.ID, Name: "Ghost", Price: decimal.NewFromInt(1), CategoryID: category.ID})
		assert.Equal(t, errors.ErrCodeOrchidNotFound, errors.CodeOf(err))
	})
}

func TestAccountService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.accountService()

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterCommand{Email: "not-an-email", Password: "short"})
		var domainErr *errors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Len(t, domainErr.Details, 3)
	})

	f.expectCommit()
	account, err := svc.Register(ctx, RegisterCommand{Email: " New@Orchid.VN ", Password: "long-enough", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new@orchid.vn", account.Email)
	assert.Equal(t, "new@orchid.vn", account.CreatedBy)
	assert.NotEqual(t, "long-enough", account.PasswordHash)

	require.Len(t, f.mem.outbox, 1)
	assert.NotContains(t, string(f.mem.outbox[0].Payload), account.PasswordHash)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterCommand{Email: "NEW@orchid.vn", Password: "long-enough", Name: "Again"})
		assert.Equal(t, errors.ErrCodeDuplicate, errors.CodeOf(err))
	})
}
