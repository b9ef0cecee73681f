package domain

import "time"

// Audit 모든 엔티티 공통 감사 컬럼 (soft delete 포함)
type Audit struct {
	IsActive  bool
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
}

// NewAudit 생성 시점 감사 정보
func NewAudit(actor string, now time.Time) Audit {
	return Audit{
		IsActive:  true,
		CreatedAt: now,
		CreatedBy: actor,
		UpdatedAt: now,
		UpdatedBy: actor,
	}
}

// Touch 변경 시점 감사 정보 갱신
func (a *Audit) Touch(actor string, now time.Time) {
	a.UpdatedAt = now
	a.UpdatedBy = actor
}

// Deactivate soft delete
func (a *Audit) Deactivate(actor string, now time.Time) {
	a.IsActive = false
	a.Touch(actor, now)
}
