package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category 카테고리 (자기 참조 트리)
type Category struct {
	ID         int64
	Name       string
	ParentID   *int64
	ParentName string
	Audit
}

// Orchid 난초(상품)
type Orchid struct {
	ID           int64
	Name         string
	Description  string
	ImageURL     string
	Price        decimal.Decimal
	IsNatural    bool
	CategoryID   int64
	CategoryName string
	Audit
}

// NormalizeName 이름 비교용 정규화
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ParentLookup 카테고리 부모 조회 함수
type ParentLookup func(id int64) (parentID *int64, found bool, err error)

// CreatesCycle categoryID 의 부모를 parentID 로 바꿨을 때 순환이 생기는지 확인.
// parentID 에서 시작해 루트까지 부모 체인을 따라가며 categoryID 를 만나면 순환.
func CreatesCycle(categoryID, parentID int64, lookup ParentLookup) (bool, error) {
	if categoryID == parentID {
		return true, nil
	}

	seen := map[int64]bool{categoryID: true}
	current := parentID
	for {
		if seen[current] {
			return true, nil
		}
		seen[current] = true

		next, found, err := lookup(current)
		if err != nil {
			return false, err
		}
		if !found || next == nil {
			return false, nil
		}
		current = *next
	}
}
