package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "PERCENTAGE"
	CouponFixedAmount  CouponType = "FIXED_AMOUNT"
	CouponFreeShipping CouponType = "FREE_SHIPPING"
)

// Status is derived from the schedule and the manual active flag on every read.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusScheduled Status = "SCHEDULED"
	StatusExpired   Status = "EXPIRED"
	StatusInactive  Status = "INACTIVE"
)

type Coupon struct {
	ID                    int64           `json:"id"`
	Code                  string          `json:"code"`
	Type                  CouponType      `json:"type"`
	Value                 decimal.Decimal `json:"value"`
	StartDate             time.Time       `json:"start_date"`
	EndDate               *time.Time      `json:"end_date,omitempty"`
	IsActive              bool            `json:"is_active"`
	UsageCount            int             `json:"usage_count"`
	CustomerUsageLimit    *int            `json:"customer_usage_limit,omitempty"`
	IsOneTimeUse          bool            `json:"is_one_time_use"`
	MinimumPurchaseAmount decimal.Decimal `json:"minimum_purchase_amount"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CouponView is what the admin console lists: the stored coupon plus its current status.
type CouponView struct {
	Coupon
	Status Status `json:"status"`
}

// NormalizeCode trims and upper-cases a coupon code so lookups ignore case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
