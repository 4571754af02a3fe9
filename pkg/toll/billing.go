package toll

import (
	"fmt"
	"time"
)

// TransactionRecord is one successful charge: written once to the
// transaction log, never mutated.
type TransactionRecord struct {
	Timestamp    time.Time
	VehicleKey   string
	Method       string
	AmountCents  int64
	BalanceCents int64
}

// BillingEngine computes the toll for a resolved vehicle and debits its
// account. The rate table is validated at construction; a missing class is
// a startup failure, never handled per transaction.
type BillingEngine struct {
	rates    RateTable
	registry *Registry
}

// NewBillingEngine validates the rate table and binds it to the registry.
func NewBillingEngine(rates RateTable, registry *Registry) (*BillingEngine, error) {
	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("billing engine: %w", err)
	}
	return &BillingEngine{rates: rates, registry: registry}, nil
}

// Rate returns the toll cents for a class. Validation guarantees presence.
func (b *BillingEngine) Rate(class VehicleClass) int64 {
	return b.rates[class]
}

// Charge debits the class rate from the vehicle's account and returns the
// resulting transaction record. On ErrInsufficientFunds nothing is mutated
// and no record is produced; the caller logs the failure.
func (b *BillingEngine) Charge(v *Vehicle) (TransactionRecord, error) {
	amount := b.rates[v.Class]
	balance, err := b.registry.Debit(v.Plate, amount)
	if err != nil {
		return TransactionRecord{}, err
	}
	return TransactionRecord{
		Timestamp:    time.Now(),
		VehicleKey:   v.Plate,
		Method:       "balance",
		AmountCents:  amount,
		BalanceCents: balance,
	}, nil
}
