package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"committee/internal/core"
)

// HighValueThreshold is the amount above which a second signer is required.
var HighValueThreshold = decimal.NewFromInt(100)

// RequiredSigners returns the roles that may authorize a transaction of the
// given amount. A category absent from the registry always needs a committee
// vote, whatever the amount.
func RequiredSigners(known bool, amount decimal.Decimal) []core.Role {
	switch {
	case !known:
		return []core.Role{core.CommitteeVote}
	case amount.GreaterThan(HighValueThreshold):
		return []core.Role{core.Chair, core.SchoolAdmin}
	default:
		return []core.Role{core.Chair}
	}
}

// IsAuthorized reports whether authorizedBy satisfies required.
//
// When a committee vote is among the required signers any declared label is
// accepted. Existing records were admitted under this rule, so it must not
// be tightened without a migration plan for them.
func IsAuthorized(required []core.Role, authorizedBy core.Role) bool {
	return slices.Contains(required, authorizedBy) || slices.Contains(required, core.CommitteeVote)
}
