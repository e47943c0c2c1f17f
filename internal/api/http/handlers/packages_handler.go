package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/service"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// SignatureHeader carries the shared secret on payment gateway callbacks.
const SignatureHeader = "X-Payment-Signature"

// PackagesHandler exposes package listing, purchase and gateway callbacks.
type PackagesHandler struct {
	subscriptions  *service.SubscriptionService
	callbackSecret string
}

// NewPackagesHandler constructs handler. An empty callbackSecret disables
// the callback endpoint.
func NewPackagesHandler(subscriptions *service.SubscriptionService, callbackSecret string) *PackagesHandler {
	return &PackagesHandler{subscriptions: subscriptions, callbackSecret: callbackSecret}
}

// List handles GET /packages.
func (h *PackagesHandler) List(c *fiber.Ctx) error {
	tiers, err := h.subscriptions.ListPackages(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.PackageResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, dto.PackageResponse{
			Code:            t.Code,
			Name:            t.Name,
			Rank:            t.Rank,
			PriceLKR:        t.PriceLKR,
			DurationDays:    t.DurationDays,
			RequestQuota:    t.RequestQuota,
			DailyViewQuota:  t.DailyViewQuota,
			DailyRequestCap: t.DailyRequestCap,
		})
	}
	return ok(c, "", out)
}

// Subscribe handles POST /packages/subscribe.
func (h *PackagesHandler) Subscribe(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.SubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	txn, err := h.subscriptions.Subscribe(c.UserContext(), id, service.SubscribeInput{
		Package:   domain.PackageCode(strings.ToUpper(strings.TrimSpace(req.Package))),
		Method:    domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		PromoCode: req.PromoCode,
	})
	if err != nil {
		return err
	}
	message := "payment initiated"
	if txn.Status == domain.PaymentStatusCompleted {
		message = "package activated"
	}
	return created(c, message, paymentResponse(txn))
}

// Callback handles POST /payments/callback from the gateway.
func (h *PackagesHandler) Callback(c *fiber.Ctx) error {
	if h.callbackSecret == "" {
		return apperrors.NewPermissionDenied("CALLBACK_DISABLED", "payment callbacks are not configured")
	}
	sig := c.Get(SignatureHeader)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(h.callbackSecret)) != 1 {
		return apperrors.NewUnauthenticated("invalid callback signature")
	}

	var req dto.PaymentCallbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	txn, err := h.subscriptions.CompletePayment(c.UserContext(), req.Reference,
		domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		return err
	}
	return ok(c, "payment recorded", paymentResponse(txn))
}

// CreatePromoCode handles POST /admin/promo-codes.
func (h *PackagesHandler) CreatePromoCode(c *fiber.Ctx) error {
	var req dto.PromoCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := service.PromoCodeInput{
		Code:           req.Code,
		DiscountType:   domain.DiscountType(strings.ToUpper(strings.TrimSpace(req.DiscountType))),
		DiscountValue:  req.DiscountValue,
		MaxDiscountLKR: req.MaxDiscountLKR,
		UsageLimit:     req.UsageLimit,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
	}
	if pkg := strings.ToUpper(strings.TrimSpace(req.Package)); pkg != "" {
		code := domain.PackageCode(pkg)
		in.Package = &code
	}
	promo, err := h.subscriptions.CreatePromoCode(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, "promo code created", dto.PromoCodeResponse{
		ID:             promo.ID,
		Code:           promo.Code,
		DiscountType:   promo.DiscountType,
		DiscountValue:  promo.DiscountValue,
		MaxDiscountLKR: promo.MaxDiscountLKR,
		UsageLimit:     promo.UsageLimit,
		Package:        promo.PackageCode,
		ValidFrom:      promo.ValidFrom,
		ValidUntil:     promo.ValidUntil,
	})
}
