package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richardliu001/wallet-api/internal/metrics"
	"github.com/richardliu001/wallet-api/internal/model"
	"github.com/richardliu001/wallet-api/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotOwner means the caller asked for a wallet owned by someone else.
	ErrNotOwner = errors.New("wallet belongs to another user")
	// ErrCreateForOtherUser means the caller tried to open a wallet for another user.
	ErrCreateForOtherUser = errors.New("cannot create wallet for another user")
	// ErrInsufficientBalance means a decrease would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WalletService glues business logic and repository.
type WalletService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewWalletService returns WalletService.
func NewWalletService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, log: logger}
}

// Get returns the wallet if caller owns it.
func (s *WalletService) Get(ctx context.Context, caller, walletID uint64) (*model.Wallet, error) {
	var w *model.Wallet
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.GetWallet(ctx, tx, walletID)
		if err != nil {
			return err
		}
		if found.IDUser != caller {
			return ErrNotOwner
		}
		w = found
		return nil
	})
	s.observe("get", err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create opens a wallet for idUser, who must be the caller. The balance is
// stored as given; its sign is not checked.
func (s *WalletService) Create(ctx context.Context, caller, idUser uint64, balance decimal.Decimal) (*model.Wallet, error) {
	if idUser != caller {
		s.observe("create", ErrCreateForOtherUser)
		return nil, ErrCreateForOtherUser
	}
	var w *model.Wallet
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		row := &model.Wallet{IDUser: idUser, Balance: balance}
		if err := s.repo.CreateWallet(ctx, tx, row); err != nil {
			return err
		}
		// return what the column kept, not what was sent
		stored, err := s.repo.GetWallet(ctx, tx, row.IDWallet)
		if err != nil {
			return err
		}
		w = stored
		return s.emit(ctx, tx, model.EventWalletCreated, w, nil)
	})
	s.observe("create", err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// IncreaseBalance adds amount to the wallet balance. Ownership is not
// checked here, unlike Get.
func (s *WalletService) IncreaseBalance(ctx context.Context, caller, walletID uint64, amount decimal.Decimal) (*model.Wallet, error) {
	return s.mutate(ctx, "increase", caller, walletID, func(w *model.Wallet) error {
		w.Balance = w.Balance.Add(amount)
		return nil
	}, model.EventBalanceIncreased, &amount)
}

// DecreaseBalance subtracts amount unless that would leave a negative
// balance. Ownership is not checked.
func (s *WalletService) DecreaseBalance(ctx context.Context, caller, walletID uint64, amount decimal.Decimal) (*model.Wallet, error) {
	return s.mutate(ctx, "decrease", caller, walletID, func(w *model.Wallet) error {
		if w.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		w.Balance = w.Balance.Sub(amount)
		return nil
	}, model.EventBalanceDecreased, &amount)
}

// Delete removes the wallet and returns its last known values. Ownership is
// not checked.
func (s *WalletService) Delete(ctx context.Context, caller, walletID uint64) (*model.Wallet, error) {
	var w *model.Wallet
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.GetWallet(ctx, tx, walletID)
		if err != nil {
			return err
		}
		s.warnUnowned("delete", caller, found)
		if err := s.repo.DeleteWallet(ctx, tx, walletID); err != nil {
			return err
		}
		w = found
		return s.emit(ctx, tx, model.EventWalletDeleted, found, nil)
	})
	s.observe("delete", err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Ping reports whether the backing store is reachable.
func (s *WalletService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Repo exposes underlying repository (unit tests helper).
func (s *WalletService) Repo() repo.RepositoryInterface {
	return s.repo
}

// mutate runs read-modify-write on one wallet inside a transaction and
// re-reads the row after the write.
func (s *WalletService) mutate(ctx context.Context, op string, caller, walletID uint64,
	apply func(w *model.Wallet) error, eventType string, amount *decimal.Decimal) (*model.Wallet, error) {
	var w *model.Wallet
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.GetWallet(ctx, tx, walletID)
		if err != nil {
			return err
		}
		if err := apply(found); err != nil {
			return err
		}
		s.warnUnowned(op, caller, found)
		if err := s.repo.UpdateBalance(ctx, tx, found); err != nil {
			return err
		}
		if w, err = s.repo.GetWallet(ctx, tx, walletID); err != nil {
			return err
		}
		return s.emit(ctx, tx, eventType, w, amount)
	})
	s.observe(op, err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WalletService) emit(ctx context.Context, tx *gorm.DB, eventType string, w *model.Wallet, amount *decimal.Decimal) error {
	body := map[string]interface{}{
		"id_wallet": w.IDWallet,
		"id_user":   w.IDUser,
		"balance":   w.Balance,
	}
	if amount != nil {
		body["amount"] = *amount
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	evt := &model.OutboxEvent{AggregateID: w.IDWallet, EventType: eventType, Payload: string(payload)}
	return s.repo.CreateOutboxEvent(ctx, tx, evt)
}

// warnUnowned logs mutations made by a caller who does not own the wallet.
// These are allowed pending a product decision on ownership rules.
func (s *WalletService) warnUnowned(op string, caller uint64, w *model.Wallet) {
	if w.IDUser == caller {
		return
	}
	s.log.Warnw("ownership not enforced",
		"operation", op, "id_wallet", w.IDWallet, "id_user", w.IDUser, "caller", caller)
}

func (s *WalletService) observe(op string, err error) {
	metrics.RecordWalletOperation(op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repo.ErrWalletNotFound):
		return "not_found"
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrCreateForOtherUser):
		return "forbidden"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "error"
	}
}
