package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/service"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// ProfileHandler serves the caller's own profile under /me.
type ProfileHandler struct {
	profiles    *service.ProfileService
	connections *service.ConnectionService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService, connections *service.ConnectionService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, connections: connections}
}

// Me handles GET /me.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	own, err := h.profiles.GetOwnProfile(c.UserContext(), id)
	if err != nil {
		return err
	}

	activity := make([]dto.ActivityResponse, 0, len(own.RecentActivity))
	for _, a := range own.RecentActivity {
		activity = append(activity, dto.ActivityResponse{Type: a.Type, Description: a.Description, CreatedAt: a.CreatedAt})
	}
	return ok(c, "", dto.OwnProfileResponse{
		Account:        accountResponse(&own.Account),
		Age:            own.Age,
		Package:        packageStatusResponse(own.Package),
		Privacy:        privacyResponse(own.Privacy),
		Preferences:    preferencesPayload(own.Preferences),
		Connections:    own.Connections,
		RecentActivity: activity,
	})
}

// Dashboard handles GET /me/dashboard.
func (h *ProfileHandler) Dashboard(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	d, err := h.connections.Dashboard(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, "", dto.DashboardResponse{
		Package:             packageStatusResponse(d.Package),
		SentPending:         d.SentPending,
		ReceivedPending:     d.ReceivedPending,
		Connections:         d.Connections,
		ActiveMembers:       d.ActiveMembers,
		UnreadNotifications: d.UnreadNotifications,
	})
}

// UpdateBasic handles PUT /me/profile/basic.
func (h *ProfileHandler) UpdateBasic(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.BasicInfoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return err
	}
	account, err := h.profiles.UpdateBasicInfo(c.UserContext(), id, service.BasicInfoInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: birth,
		AboutMe:   req.AboutMe,
	})
	if err != nil {
		return err
	}
	return ok(c, "basic information updated", accountResponse(account))
}

// UpdatePersonal handles PUT /me/profile/personal.
func (h *ProfileHandler) UpdatePersonal(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.PersonalDetailsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.profiles.UpdatePersonalDetails(c.UserContext(), id, service.PersonalDetailsInput{
		Religion:      req.Religion,
		Caste:         req.Caste,
		MaritalStatus: req.MaritalStatus,
		Education:     req.Education,
		Profession:    req.Profession,
		IncomeRange:   req.IncomeRange,
	})
	if err != nil {
		return err
	}
	return ok(c, "personal details updated", accountResponse(account))
}

// UpdateContact handles PUT /me/profile/contact.
func (h *ProfileHandler) UpdateContact(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.ContactRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.profiles.UpdateContactInfo(c.UserContext(), id, service.ContactInput{
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		Province:           req.Province,
		Country:            req.Country,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		return err
	}
	return ok(c, "contact information updated", accountResponse(account))
}

// UpdatePrivacy handles PUT /me/privacy.
func (h *ProfileHandler) UpdatePrivacy(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.PrivacyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	settings, err := h.profiles.UpdatePrivacy(c.UserContext(), id, service.PrivacyInput{
		Visibility:         domain.ProfileVisibility(strings.ToUpper(req.Visibility)),
		ReceiveRequestFrom: domain.RequestPolicy(strings.ToUpper(req.ReceiveRequestFrom)),
		ShowPhone:          req.ShowPhone,
		ShowEmail:          req.ShowEmail,
	})
	if err != nil {
		return err
	}
	return ok(c, "privacy settings updated", privacyResponse(*settings))
}

// UpdatePreferences handles PUT /me/preferences.
func (h *ProfileHandler) UpdatePreferences(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.PreferencesPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	prefs, err := h.profiles.UpdatePartnerPreferences(c.UserContext(), id, domain.PartnerPreferences{
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
		Religion:      req.Religion,
		Caste:         req.Caste,
		Education:     req.Education,
		Location:      req.Location,
		MaritalStatus: req.MaritalStatus,
		Profession:    req.Profession,
	})
	if err != nil {
		return err
	}
	return ok(c, "partner preferences updated", preferencesPayload(prefs))
}

// UploadPhoto handles POST /me/photo as multipart form field "photo".
func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("photo")
	if err != nil {
		return apperrors.NewValidationError("please correct the highlighted fields", map[string]any{"photo": "is required"})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	account, err := h.profiles.UploadProfilePicture(c.UserContext(), id, header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		return err
	}
	return ok(c, "profile picture updated", fiber.Map{"profile_pic": account.ProfilePic})
}

// Deactivate handles POST /me/deactivate.
func (h *ProfileHandler) Deactivate(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	if err := h.profiles.Deactivate(c.UserContext(), id); err != nil {
		return err
	}
	return ok(c, "your account has been deactivated", nil)
}
