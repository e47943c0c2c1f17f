package handlers

import (
	"time"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/service"
)

func accountResponse(a *domain.Account) dto.AccountResponse {
	resp := dto.AccountResponse{
		ID:                 a.ID,
		Email:              a.Email,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Gender:             a.Gender,
		Religion:           a.Religion,
		Caste:              a.Caste,
		MaritalStatus:      a.MaritalStatus,
		Education:          a.Education,
		Profession:         a.Profession,
		IncomeRange:        a.IncomeRange,
		City:               a.City,
		Province:           a.Province,
		Country:            a.Country,
		Phone:              a.Phone,
		Address:            a.Address,
		AboutMe:            a.AboutMe,
		ProfilePic:         a.ProfilePic,
		Status:             a.Status,
		Role:               a.Role,
		Package:            a.PackageCode,
		PackageExpiresAt:   a.PackageExpiresAt,
		RequestsRemaining:  a.RequestsRemaining,
		EmailNotifications: a.EmailNotifications,
		LastActiveAt:       a.LastActiveAt,
		CreatedAt:          a.CreatedAt,
	}
	if !a.BirthDate.IsZero() {
		resp.BirthDate = a.BirthDate.Format(dateLayout)
	}
	return resp
}

func packageStatusResponse(p *service.PackageStatus) dto.PackageStatusResponse {
	if p == nil {
		return dto.PackageStatusResponse{}
	}
	return dto.PackageStatusResponse{
		Code:              p.Tier.Code,
		Name:              p.Tier.Name,
		Rank:              p.Tier.Rank,
		ExpiresAt:         p.ExpiresAt,
		DaysRemaining:     p.DaysRemaining,
		ExpiringSoon:      p.ExpiringSoon,
		Downgraded:        p.Downgraded,
		RequestsRemaining: p.RequestsRemaining,
		DailyViewQuota:    p.Tier.DailyViewQuota,
		DailyRequestCap:   p.Tier.DailyRequestCap,
	}
}

func privacyResponse(p domain.PrivacySettings) dto.PrivacyResponse {
	return dto.PrivacyResponse{
		Visibility:         p.Visibility,
		ReceiveRequestFrom: p.ReceiveRequestFrom,
		ShowPhone:          p.ShowPhone,
		ShowEmail:          p.ShowEmail,
	}
}

func preferencesPayload(p *domain.PartnerPreferences) *dto.PreferencesPayload {
	if p == nil {
		return nil
	}
	return &dto.PreferencesPayload{
		MinAge:        p.MinAge,
		MaxAge:        p.MaxAge,
		Religion:      p.Religion,
		Caste:         p.Caste,
		Education:     p.Education,
		Location:      p.Location,
		MaritalStatus: p.MaritalStatus,
		Profession:    p.Profession,
	}
}

func memberProfileResponse(p *service.MemberProfile) dto.MemberProfileResponse {
	resp := dto.MemberProfileResponse{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Gender:       p.Gender,
		Age:          p.Age,
		Religion:     p.Religion,
		Education:    p.Education,
		Profession:   p.Profession,
		City:         p.City,
		Country:      p.Country,
		AboutMe:      p.AboutMe,
		ProfilePic:   p.ProfilePic,
		OnlineStatus: p.OnlineStatus,
		AccessLevel:  p.Level,
		Connection:   p.Connection,
		Preferences:  preferencesPayload(p.Preferences),
	}
	if d := p.Detailed; d != nil {
		resp.Detailed = &dto.DetailedFields{
			Caste:         d.Caste,
			MaritalStatus: d.MaritalStatus,
			IncomeRange:   d.IncomeRange,
			Province:      d.Province,
		}
	}
	if ct := p.Contact; ct != nil {
		resp.Contact = &dto.ContactFields{Phone: ct.Phone, Email: ct.Email, Address: ct.Address}
	}
	for _, m := range p.MutualConnections {
		resp.Mutual = append(resp.Mutual, dto.MutualConnection{
			ID:         m.ID,
			FirstName:  m.FirstName,
			LastName:   m.LastName,
			ProfilePic: m.ProfilePic,
		})
	}
	if cm := p.Compatibility; cm != nil {
		resp.Compatibility = &dto.CompatibilityResponse{
			Score:      cm.Score,
			Percentage: cm.Percentage,
			Factors:    cm.Factors,
			Matched:    cm.Matched,
		}
	}
	return resp
}

func counterpart(a domain.Account, now time.Time) *dto.CounterpartSummary {
	return &dto.CounterpartSummary{
		ID:         a.ID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Age:        domain.AgeAt(a.BirthDate, now),
		City:       a.City,
		ProfilePic: a.ProfilePic,
	}
}

func requestResponse(r domain.ConnectionRequest) dto.RequestResponse {
	return dto.RequestResponse{
		ID:          r.ID,
		SenderID:    r.SenderID,
		ReceiverID:  r.ReceiverID,
		Status:      r.Status,
		Note:        r.Note,
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}

func messageResponse(m domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func paymentResponse(t *domain.PaymentTransaction) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          t.ID,
		Package:     t.PackageCode,
		AmountLKR:   t.AmountLKR,
		DiscountLKR: t.DiscountLKR,
		PromoCodeID: t.PromoCodeID,
		Method:      t.Method,
		Status:      t.Status,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt,
	}
}
