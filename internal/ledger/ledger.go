// Package ledger 维护单一的虚拟资金账户：按比例定仓、开仓扣款、平仓入账，并在每次变动后落盘。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"signalbot/internal/logger"
	"signalbot/internal/store"
	"signalbot/internal/store/model"

	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinimum        = errors.New("sized amount below minimum trade")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type SizingBasis string

const (
	BasisBalance   SizingBasis = "balance"
	BasisPrincipal SizingBasis = "principal"
)

type Config struct {
	InitialBalance float64
	Fraction       float64
	MinTrade       float64
	Basis          SizingBasis
}

// Snapshot is a point-in-time copy of the account.
type Snapshot struct {
	Balance   decimal.Decimal
	Principal decimal.Decimal
	Fraction  decimal.Decimal
	MinTrade  decimal.Decimal
	Basis     SizingBasis
}

// Ledger is the single writer of the virtual balance. All mutations and
// checkpoints happen under mu so opens and closes never interleave.
type Ledger struct {
	mu        sync.Mutex
	repo      store.AccountRepository
	balance   decimal.Decimal
	principal decimal.Decimal
	fraction  decimal.Decimal
	minTrade  decimal.Decimal
	basis     SizingBasis
	nowFn     func() time.Time
}

// New loads the last checkpoint from repo, falling back to cfg.InitialBalance
// when none exists.
func New(ctx context.Context, repo store.AccountRepository, cfg Config) (*Ledger, error) {
	l := &Ledger{
		repo:      repo,
		balance:   decimal.NewFromFloat(cfg.InitialBalance),
		principal: decimal.NewFromFloat(cfg.InitialBalance),
		fraction:  decimal.NewFromFloat(cfg.Fraction),
		minTrade:  decimal.NewFromFloat(cfg.MinTrade),
		basis:     normalizeBasis(cfg.Basis),
		nowFn:     time.Now,
	}
	if l.balance.IsNegative() {
		return nil, fmt.Errorf("initial balance must be >= 0")
	}
	if repo == nil {
		return l, nil
	}
	acct, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		logger.Infof("ledger: no checkpoint found, starting with %s", l.balance.StringFixed(2))
		l.checkpoint(ctx)
		return l, nil
	}
	bal, err := decimal.NewFromString(acct.Balance)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint balance %q: %w", acct.Balance, err)
	}
	l.balance = bal
	if strings.TrimSpace(acct.Principal) != "" {
		if p, perr := decimal.NewFromString(acct.Principal); perr == nil {
			l.principal = p
		}
	}
	logger.Infof("ledger: resumed balance %s from checkpoint", l.balance.StringFixed(2))
	return l, nil
}

func normalizeBasis(b SizingBasis) SizingBasis {
	if SizingBasis(strings.ToLower(strings.TrimSpace(string(b)))) == BasisPrincipal {
		return BasisPrincipal
	}
	return BasisBalance
}

// Size returns balance*fraction, clamped so the result never exceeds balance
// and never goes negative.
func Size(balance, fraction decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() || !fraction.IsPositive() {
		return decimal.Zero
	}
	amount := balance.Mul(fraction)
	if amount.GreaterThan(balance) {
		return balance
	}
	return amount
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Balance:   l.balance,
		Principal: l.principal,
		Fraction:  l.fraction,
		MinTrade:  l.minTrade,
		Basis:     l.basis,
	}
}

// Debit removes amount from the balance, refusing any debit that would make it negative.
func (l *Ledger) Debit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit amount must be > 0, got %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(ctx, amount)
}

func (l *Ledger) debitLocked(ctx context.Context, amount decimal.Decimal) error {
	if amount.GreaterThan(l.balance) {
		return ErrInsufficientBalance
	}
	l.balance = l.balance.Sub(amount)
	l.checkpoint(ctx)
	return nil
}

func (l *Ledger) Credit(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must be >= 0, got %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = l.balance.Add(amount)
	l.checkpoint(ctx)
	return nil
}

// Reserve sizes a new position and debits it in one critical section, so two
// candidates in the same cycle can never size off the same balance snapshot.
func (l *Ledger) Reserve(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	base := l.balance
	if l.basis == BasisPrincipal {
		base = l.principal
	}
	amount := Size(base, l.fraction)
	if amount.GreaterThan(l.balance) {
		amount = l.balance
	}
	if amount.LessThan(l.minTrade) || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s < %s", ErrBelowMinimum, amount.StringFixed(2), l.minTrade.StringFixed(2))
	}
	if err := l.debitLocked(ctx, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// checkpoint persists the balance. A failed write is logged but the in-memory
// balance stays authoritative; the next mutation writes it again.
func (l *Ledger) checkpoint(ctx context.Context) {
	if l.repo == nil {
		return
	}
	err := l.repo.Save(ctx, &model.AccountModel{
		ID:            model.AccountSingletonID,
		Balance:       l.balance.String(),
		Principal:     l.principal.String(),
		UpdatedAtUnix: l.nowFn().UnixMilli(),
	})
	if err != nil {
		logger.Warnf("ledger: checkpoint failed: %v", err)
	}
}
