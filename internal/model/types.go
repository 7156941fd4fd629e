package model

// TransactionType categorizes player transactions.
type TransactionType string

// Player transaction types.
const (
	TxTypeDeposit   TransactionType = "deposit"    // Player deposit request
	TxTypeWithdraw  TransactionType = "withdraw"   // Player withdrawal request
	TxTypeSpinBonus TransactionType = "spin_bonus" // Free-spin bonus credit
	TxTypePromotion TransactionType = "promotion"  // Promotion credit
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeDeposit, TxTypeWithdraw, TxTypeSpinBonus, TxTypePromotion:
		return true
	}
	return false
}

// IsBonus reports whether t is a bonus credit rather than a cash movement.
func (t TransactionType) IsBonus() bool {
	return t == TxTypeSpinBonus || t == TxTypePromotion
}

// TransactionStatus is the approval state shared by player and house records.
type TransactionStatus string

// Approval states.
const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether an admin may move a record from s to next.
// Only pending records change state, and only to a final state.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusRejected)
}

// BetStatus is the settlement state of a bet result.
type BetStatus string

// Bet settlement states.
const (
	BetWin       BetStatus = "win"
	BetLoss      BetStatus = "loss"
	BetPending   BetStatus = "pending"
	BetCancelled BetStatus = "cancelled"
)

// Valid reports whether s is a known bet status.
func (s BetStatus) Valid() bool {
	switch s {
	case BetWin, BetLoss, BetPending, BetCancelled:
		return true
	}
	return false
}

// Settled reports whether s is a final settlement state.
func (s BetStatus) Settled() bool {
	return s == BetWin || s == BetLoss || s == BetCancelled
}

// HouseRecordType categorizes house ledger entries.
type HouseRecordType string

// House ledger entry types.
const (
	HouseAdminDeposit   HouseRecordType = "admin_deposit"
	HousePlayerDeposit  HouseRecordType = "player_deposit"
	HousePromotion      HouseRecordType = "promotion"
	HousePlayerWithdraw HouseRecordType = "player_withdraw"
	HouseAdminWithdraw  HouseRecordType = "admin_withdraw"
)

// Valid reports whether t is a known house record type.
func (t HouseRecordType) Valid() bool {
	switch t {
	case HouseAdminDeposit, HousePlayerDeposit, HousePromotion, HousePlayerWithdraw, HouseAdminWithdraw:
		return true
	}
	return false
}

// Inflow reports whether t adds to the house balance.
func (t HouseRecordType) Inflow() bool {
	return t == HouseAdminDeposit || t == HousePlayerDeposit
}
