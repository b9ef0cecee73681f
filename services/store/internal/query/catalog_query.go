package query

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/projection"
)

// CategoryNode 카테고리 트리 노드
type CategoryNode struct {
	events.CategorySnapshot
	Children []*CategoryNode `json:"children"`
}

// OrchidFilter 난초 목록 필터
type OrchidFilter struct {
	CategoryID      *int64
	Search          string
	IsNatural       *bool
	Page            int
	PageSize        int
	IncludeInactive bool
}

// CatalogQuery 카탈로그 조회 인터페이스
type CatalogQuery interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]events.CategorySnapshot, error)
	CategoryTree(ctx context.Context, includeInactive bool) ([]*CategoryNode, error)
	GetCategory(ctx context.Context, id int64, includeInactive bool) (*events.CategorySnapshot, error)
	ListOrchids(ctx context.Context, filter OrchidFilter) (*Page[events.OrchidSnapshot], error)
	GetOrchid(ctx context.Context, id int64, includeInactive bool) (*events.OrchidSnapshot, error)
}

type catalogQuery struct {
	reader projection.Reader
}

// NewCatalogQuery 카탈로그 조회 생성
func NewCatalogQuery(reader projection.Reader) CatalogQuery {
	return &catalogQuery{reader: reader}
}

func readError(err error) error {
	return errors.Wrap(errors.ErrCodeDatabaseUnavailable, "the read store is unavailable", err)
}

// categories 이름 기준 정렬 + 부모 이름을 현재 문서로 보정
func (q *catalogQuery) categories(ctx context.Context, includeInactive bool) ([]events.CategorySnapshot, error) {
	all, err := q.reader.ListCategories(ctx)
	if err != nil {
		return nil, readError(err)
	}

	names := make(map[int64]string, len(all))
	for _, c := range all {
		names[c.ID] = c.Name
	}

	result := make([]events.CategorySnapshot, 0, len(all))
	for _, c := range all {
		if !c.IsActive && !includeInactive {
			continue
		}
		if c.ParentID != nil {
			c.ParentName = names[*c.ParentID]
		}
		result = append(result, c)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (q *catalogQuery) ListCategories(ctx context.Context, includeInactive bool) ([]events.CategorySnapshot, error) {
	return q.categories(ctx, includeInactive)
}

// CategoryTree 부모가 목록에 없으면 루트로 취급
func (q *catalogQuery) CategoryTree(ctx context.Context, includeInactive bool) ([]*CategoryNode, error) {
	flat, err := q.categories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*CategoryNode, len(flat))
	for _, c := range flat {
		nodes[c.ID] = &CategoryNode{CategorySnapshot: c, Children: []*CategoryNode{}}
	}

	roots := make([]*CategoryNode, 0)
	for _, c := range flat {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

func (q *catalogQuery) GetCategory(ctx context.Context, id int64, includeInactive bool) (*events.CategorySnapshot, error) {
	category, err := q.reader.GetCategory(ctx, id)
	if stderrors.Is(err, projection.ErrNotFound) || (err == nil && !category.IsActive && !includeInactive) {
		return nil, errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	if err != nil {
		return nil, readError(err)
	}
	if category.ParentID != nil {
		if parent, err := q.reader.GetCategory(ctx, *category.ParentID); err == nil {
			category.ParentName = parent.Name
		}
	}
	return category, nil
}

func (q *catalogQuery) ListOrchids(ctx context.Context, filter OrchidFilter) (*Page[events.OrchidSnapshot], error) {
	all, err := q.reader.ListOrchids(ctx)
	if err != nil {
		return nil, readError(err)
	}
	categories, err := q.reader.ListCategories(ctx)
	if err != nil {
		return nil, readError(err)
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]events.OrchidSnapshot, 0, len(all))
	for _, o := range all {
		if !o.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.CategoryID != nil && o.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.IsNatural != nil && o.IsNatural != *filter.IsNatural {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.Name), search) &&
			!strings.Contains(strings.ToLower(o.Description), search) {
			continue
		}
		if name, ok := categoryNames[o.CategoryID]; ok {
			o.CategoryName = name
		}
		matched = append(matched, o)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
	})

	page := paginate(matched, filter.Page, filter.PageSize)
	return &page, nil
}

func (q *catalogQuery) GetOrchid(ctx context.Context, id int64, includeInactive bool) (*events.OrchidSnapshot, error) {
	orchid, err := q.reader.GetOrchid(ctx, id)
	if stderrors.Is(err, projection.ErrNotFound) || (err == nil && !orchid.IsActive && !includeInactive) {
		return nil, errors.New(errors.ErrCodeOrchidNotFound, "orchid not found")
	}
	if err != nil {
		return nil, readError(err)
	}
	if category, err := q.reader.GetCategory(ctx, orchid.CategoryID); err == nil {
		orchid.CategoryName = category.Name
	}
	return orchid, nil
}
