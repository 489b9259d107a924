package server

import (
	"confide/internal/models"

	"github.com/gofiber/fiber/v2"
)

type referralLinkResponse struct {
	models.ReferralLink
	URL string `json:"url"`
}

func (s *Server) withURL(link models.ReferralLink) referralLinkResponse {
	return referralLinkResponse{
		ReferralLink: link,
		URL:          s.config.ReferralBaseURL + "/invite/" + link.Code,
	}
}

// ListReferralLinks handles GET /api/referrals
func (s *Server) ListReferralLinks(c *fiber.Ctx) error {
	links := s.store.ReferralLinks(currentUser(c))
	out := make([]referralLinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, s.withURL(l))
	}
	return c.JSON(out)
}

// CreateReferralLink handles POST /api/referrals. The code is generated
// when the body does not carry one.
func (s *Server) CreateReferralLink(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	link, err := s.store.GenerateReferralLink(c.UserContext(), currentUser(c), req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.withURL(*link))
}

// RedeemReferralCode handles POST /api/referrals/redeem
func (s *Server) RedeemReferralCode(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	userID := currentUser(c)
	if _, err := s.store.UseReferralCode(c.UserContext(), userID, req.Code); err != nil {
		return respondError(c, err)
	}
	credits, err := s.store.Balance(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"redeemed": true,
		"bonus":    models.ReferralSignupBonus,
		"credits":  credits,
	})
}
