package store

import (
	"context"
	"math"

	"confide/internal/models"
)

// Credit reasons recorded with ledger movements.
const (
	reasonMessage        = "message"
	reasonRoomCreation   = "room_creation"
	reasonTopUp          = "top_up"
	reasonGrant          = "grant"
	reasonReferral       = "referral"
	reasonReferralSignup = "referral_signup"
)

type creditChanged struct {
	Balance int    `json:"balance"`
	Delta   int    `json:"delta"`
	Reason  string `json:"reason"`
}

// requireCredits fails with INSUFFICIENT_CREDITS unless u can pay cost.
func requireCredits(u *models.User, cost int) error {
	if u.Credits < cost {
		return models.NewInsufficientCreditsError(cost, u.Credits)
	}
	return nil
}

// debit lowers the balance, clamping at zero. Only call from a commit.
func (tx *txn) debit(u *models.User, amount int, reason string) {
	before := u.Credits
	u.Credits = max(0, u.Credits-amount)
	tx.recordMove(u, u.Credits-before, reason)
}

// credit raises the balance, saturating at math.MaxInt. Only call from a
// commit.
func (tx *txn) credit(u *models.User, amount int, reason string) {
	before := u.Credits
	if amount > math.MaxInt-u.Credits {
		u.Credits = math.MaxInt
	} else {
		u.Credits += amount
	}
	tx.recordMove(u, u.Credits-before, reason)
}

func (tx *txn) recordMove(u *models.User, delta int, reason string) {
	if delta == 0 {
		return
	}
	tx.moves = append(tx.moves, creditMove{amount: delta, reason: reason})
	tx.emit(models.EventCreditsChanged, models.UserTopic(u.ID), creditChanged{
		Balance: u.Credits,
		Delta:   delta,
		Reason:  reason,
	})
}

// Balance returns the user's current credits.
func (s *Store) Balance(userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.st.user(userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// TopUp adds between 1 and 1000 credits to the caller's own balance.
func (s *Store) TopUp(ctx context.Context, actorID string, amount int) (int, error) {
	if amount < 1 || amount > models.MaxTopUp {
		return 0, models.NewValidationError("Top up amount must be between 1 and 1000")
	}
	return result[int](s.execute(ctx, OpCredit, actorID, creditPayload{UserID: actorID, Amount: amount, Reason: reasonTopUp}))
}

// GrantCredits adds credits to any user. It is an operator action.
func (s *Store) GrantCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount < 1 {
		return 0, models.NewValidationError("Grant amount must be positive")
	}
	return result[int](s.execute(ctx, OpCredit, "", creditPayload{UserID: userID, Amount: amount, Reason: reasonGrant}))
}

func (s *Store) planCredit(tx *txn, p creditPayload) (func(), error) {
	u, err := s.st.user(p.UserID)
	if err != nil {
		return nil, err
	}
	if p.Amount < 1 {
		return nil, models.NewValidationError("Credit amount must be positive")
	}
	if p.Amount > math.MaxInt-u.Credits {
		return nil, models.NewValidationError("Credit amount would overflow the balance")
	}
	return func() {
		tx.credit(u, p.Amount, p.Reason)
		tx.result = u.Credits
	}, nil
}
