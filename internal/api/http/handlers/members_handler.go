package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/service"
)

// MembersHandler serves browse, search and member profiles.
type MembersHandler struct {
	search      *service.SearchService
	profiles    *service.ProfileService
	connections *service.ConnectionService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(search *service.SearchService, profiles *service.ProfileService, connections *service.ConnectionService) *MembersHandler {
	return &MembersHandler{search: search, profiles: profiles, connections: connections}
}

// Search handles GET /members.
func (h *MembersHandler) Search(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	filter, err := searchFilterFromQuery(c)
	if err != nil {
		return err
	}

	res, err := h.search.Search(c.UserContext(), id, filter)
	if err != nil {
		return err
	}
	cards := make([]dto.MemberCard, 0, len(res.Members))
	for _, m := range res.Members {
		cards = append(cards, dto.MemberCard{
			ID:           m.Account.ID,
			FirstName:    m.Account.FirstName,
			LastName:     m.Account.LastName,
			Gender:       m.Account.Gender,
			Age:          m.Age,
			Religion:     m.Account.Religion,
			Education:    m.Account.Education,
			Profession:   m.Account.Profession,
			City:         m.Account.City,
			ProfilePic:   m.Account.ProfilePic,
			OnlineStatus: m.OnlineStatus,
			Connection:   m.Connection,
		})
	}
	return ok(c, "", dto.SearchResponse{
		Members:    cards,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	})
}

func searchFilterFromQuery(c *fiber.Ctx) (service.SearchFilter, error) {
	minAge, err := optionalInt(c, "min_age")
	if err != nil {
		return service.SearchFilter{}, err
	}
	maxAge, err := optionalInt(c, "max_age")
	if err != nil {
		return service.SearchFilter{}, err
	}
	page, err := intQuery(c, "page")
	if err != nil {
		return service.SearchFilter{}, err
	}
	size, err := intQuery(c, "page_size")
	if err != nil {
		return service.SearchFilter{}, err
	}
	return service.SearchFilter{
		MinAge:        minAge,
		MaxAge:        maxAge,
		Religion:      c.Query("religion"),
		Caste:         c.Query("caste"),
		Education:     c.Query("education"),
		MaritalStatus: c.Query("marital_status"),
		IncomeRange:   c.Query("income_range"),
		Profession:    c.Query("profession"),
		Location:      c.Query("location"),
		Keyword:       c.Query("keyword"),
		Recency:       strings.ToLower(c.Query("online")),
		HasPhoto:      c.QueryBool("has_photo", false),
		Sort:          c.Query("sort"),
		Order:         c.Query("order"),
		Page:          page,
		PageSize:      size,
	}, nil
}

// FilterOptions handles GET /members/filters.
func (h *MembersHandler) FilterOptions(c *fiber.Ctx) error {
	opts, err := h.search.FilterOptions(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, "", dto.FilterOptionsResponse{
		Religions:   opts.Religions,
		Cities:      opts.Cities,
		Professions: opts.Professions,
	})
}

// GetMember handles GET /members/:id.
func (h *MembersHandler) GetMember(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	targetID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	profile, err := h.profiles.GetMember(c.UserContext(), id, targetID)
	if err != nil {
		return err
	}
	return ok(c, "", memberProfileResponse(profile))
}

// Status handles GET /members/:id/status.
func (h *MembersHandler) Status(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	otherID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	status, err := h.connections.ConnectionStatus(c.UserContext(), id, otherID)
	if err != nil {
		return err
	}
	return ok(c, "", fiber.Map{"connection_status": status})
}
