package credits

import "strconv"

// UnlimitedDisplayCredits is the number shown to clients for unlimited accounts.
const UnlimitedDisplayCredits int64 = 999999

// Balance is either a limited credit count or unlimited.
// Arithmetic only ever happens on the limited variant.
type Balance struct {
	credits   int64
	unlimited bool
}

// Limited returns a balance holding n credits.
func Limited(n int64) Balance { return Balance{credits: n} }

// Unlimited returns the unlimited balance.
func Unlimited() Balance { return Balance{unlimited: true} }

// IsUnlimited reports whether the balance is unlimited.
func (b Balance) IsUnlimited() bool { return b.unlimited }

// Credits returns the limited credit count; ok is false for unlimited balances.
func (b Balance) Credits() (int64, bool) {
	if b.unlimited {
		return 0, false
	}
	return b.credits, true
}

// Covers reports whether the balance can pay cost.
func (b Balance) Covers(cost int64) bool {
	return b.unlimited || b.credits >= cost
}

// DisplayCredits converts the balance to the number shown to clients.
func (b Balance) DisplayCredits() int64 {
	if b.unlimited {
		return UnlimitedDisplayCredits
	}
	return b.credits
}

// String renders the balance for logs and messages.
func (b Balance) String() string {
	if b.unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(b.credits, 10)
}
