package dto

import (
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// PackageResponse is one tier on sale.
type PackageResponse struct {
	Code            domain.PackageCode `json:"code"`
	Name            string             `json:"name"`
	Rank            int                `json:"rank"`
	PriceLKR        int64              `json:"price_lkr"`
	DurationDays    int                `json:"duration_days"`
	RequestQuota    int                `json:"request_quota"`
	DailyViewQuota  int                `json:"daily_view_quota"`
	DailyRequestCap int                `json:"daily_request_cap"`
}

// SubscribeRequest payload for POST /packages/subscribe.
type SubscribeRequest struct {
	Package       string `json:"package"`
	PaymentMethod string `json:"payment_method"`
	PromoCode     string `json:"promo_code"`
}

// PaymentCallbackRequest is posted by the payment gateway.
type PaymentCallbackRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// PaymentResponse is a payment transaction.
type PaymentResponse struct {
	ID        string               `json:"id"`
	Package   domain.PackageCode   `json:"package"`
	AmountLKR   int64                `json:"amount_lkr"`
	DiscountLKR int64                `json:"discount_lkr"`
	PromoCodeID *string              `json:"promo_code_id,omitempty"`
	Method      domain.PaymentMethod `json:"payment_method"`
	Status      domain.PaymentStatus `json:"status"`
	Reference   string               `json:"reference"`
	CreatedAt   time.Time            `json:"created_at"`
}

// PromoCodeRequest payload for POST /admin/promo-codes.
type PromoCodeRequest struct {
	Code           string     `json:"code"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  int64      `json:"discount_value"`
	MaxDiscountLKR int64      `json:"max_discount_lkr"`
	UsageLimit     int        `json:"usage_limit"`
	Package        string     `json:"package"`
	ValidFrom      *time.Time `json:"valid_from"`
	ValidUntil     time.Time  `json:"valid_until"`
}

// PromoCodeResponse is an issued promo code.
type PromoCodeResponse struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	DiscountType   domain.DiscountType `json:"discount_type"`
	DiscountValue  int64               `json:"discount_value"`
	MaxDiscountLKR int64               `json:"max_discount_lkr"`
	UsageLimit     int                 `json:"usage_limit"`
	Package        *domain.PackageCode `json:"package,omitempty"`
	ValidFrom      time.Time           `json:"valid_from"`
	ValidUntil     time.Time           `json:"valid_until"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID               string                  `json:"id"`
	Type             domain.NotificationType `json:"type"`
	Message          string                  `json:"message"`
	RelatedAccountID *string                 `json:"related_account_id,omitempty"`
	IsRead           bool                    `json:"is_read"`
	CreatedAt        time.Time               `json:"created_at"`
}

// InboxResponse is GET /notifications.
type InboxResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int                    `json:"unread"`
}

// MarkReadRequest marks specific notifications, or all of them.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

// AccountStatusRequest payload for the admin status endpoint.
type AccountStatusRequest struct {
	Status string `json:"status"`
}
