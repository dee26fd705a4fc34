package decay

import (
	"log/slog"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

// CompostBalance returns an owner's claimable compost.
func (e *Engine) CompostBalance(owner string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger[owner]
}

// ClaimCompost debits amount from the caller's compost balance.
func (e *Engine) ClaimCompost(caller string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance := e.ledger[caller]
	if amount > balance {
		return fault.Wrap("claim compost", ErrInsufficientCompost)
	}
	e.ledger[caller] = balance - amount
	slog.Debug("compost claimed", "owner", caller, "amount", amount, "balance", e.ledger[caller])
	return nil
}

// ConvertCompost debits amount of compost from the caller and converts it
// into resource units at the fixed per-type rate. Returns the converted
// amount; crediting it to a resource pool is the caller's concern.
func (e *Engine) ConvertCompost(caller string, amount uint64, rtype components.ResourceType) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate, ok := e.params.ConversionRates[rtype]
	if !ok {
		return 0, fault.Wrap("convert compost", ErrNoConversionRate)
	}
	balance := e.ledger[caller]
	if amount > balance {
		return 0, fault.Wrap("convert compost", ErrInsufficientCompost)
	}

	e.ledger[caller] = balance - amount
	converted := fixp.ApplyBP(amount, rate)
	slog.Debug("compost converted", "owner", caller, "amount", amount, "type", rtype.String(), "converted", converted)
	return converted, nil
}
