package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"confide/internal/models"
)

// GenerateReferralLink creates a referral link for the caller. An empty code
// gets a random 8-character one.
func (s *Store) GenerateReferralLink(ctx context.Context, actorID, code string) (*models.ReferralLink, error) {
	return result[*models.ReferralLink](s.execute(ctx, OpGenerateReferral, actorID, referralPayload{
		Code: strings.ToUpper(strings.TrimSpace(code)),
	}))
}

func (s *Store) planGenerateReferral(tx *txn, p referralPayload) (func(), error) {
	owner, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	code := p.Code
	if code != "" {
		if !customCodePattern.MatchString(code) {
			return nil, models.NewValidationError("Referral code must be 4-16 upper-case letters or digits")
		}
		if _, taken := s.st.referralCodes[code]; taken {
			return nil, models.NewConflictError("Referral code is already in use")
		}
	} else {
		for attempt := 0; attempt < maxCodeAttempts && code == ""; attempt++ {
			c := deriveCode(tx.cmd.ID, attempt, referralCodeLength)
			if _, taken := s.st.referralCodes[c]; !taken {
				code = c
			}
		}
		if code == "" {
			return nil, models.NewConflictError("Could not allocate a referral code, try again")
		}
	}
	link := &models.ReferralLink{
		ID:        tx.nextID(),
		UserID:    owner.ID,
		Code:      code,
		CreatedAt: tx.cmd.At,
		UsedBy:    models.IDSet{},
	}
	return func() {
		s.st.referrals[link.ID] = link
		s.st.referralCodes[code] = link.ID
		tx.result = link.Clone()
	}, nil
}

// UseReferralCode redeems a code. The link owner earns the referral bonus and
// the caller receives the signup bonus. Each user redeems a code once and
// owners cannot redeem their own.
func (s *Store) UseReferralCode(ctx context.Context, actorID, code string) (*models.ReferralLink, error) {
	return result[*models.ReferralLink](s.execute(ctx, OpUseReferral, actorID, referralPayload{
		Code: strings.ToUpper(strings.TrimSpace(code)),
	}))
}

func (s *Store) planUseReferral(tx *txn, p referralPayload) (func(), error) {
	redeemer, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	id, ok := s.st.referralCodes[p.Code]
	if !ok {
		return nil, models.NewNotFoundError("Referral code", p.Code)
	}
	link := s.st.referrals[id]
	if link.UserID == redeemer.ID {
		return nil, models.NewForbiddenError("You cannot redeem your own referral code")
	}
	if link.UsedBy.Has(redeemer.ID) {
		return nil, models.NewConflictError("You already redeemed this referral code")
	}
	owner, err := s.st.user(link.UserID)
	if err != nil {
		return nil, err
	}
	return func() {
		link.UsedBy.Add(redeemer.ID)
		link.TotalEarned += models.ReferralBonus
		tx.credit(owner, models.ReferralBonus, reasonReferral)
		tx.credit(redeemer, models.ReferralSignupBonus, reasonReferralSignup)
		s.notify(tx, owner.ID, models.NotificationReferralBonus, "Referral Bonus Earned!",
			fmt.Sprintf("%s joined with your code. You earned %d credits.", redeemer.Username, models.ReferralBonus))
		s.notify(tx, redeemer.ID, models.NotificationSystem, "Welcome bonus",
			fmt.Sprintf("You received %d credits for joining with a referral code.", models.ReferralSignupBonus))
		tx.result = link.Clone()
	}, nil
}

// ReferralLinks lists the links owned by userID, oldest first.
func (s *Store) ReferralLinks(userID string) []models.ReferralLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReferralLink
	for _, l := range s.st.referrals {
		if l.UserID == userID {
			out = append(out, *l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByTime(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}
