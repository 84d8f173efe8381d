package paymentrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/internal/domain/services/pricing"
)

// resolve computes the status the observed transactions imply
func (s *Service) resolve(ctx context.Context, pr *entities.PaymentRequest) (entities.StatusInfo, error) {
	switch pr.Status {
	case entities.PaymentRequestStatusNone, entities.PaymentRequestStatusNew, entities.PaymentRequestStatusInProcess:
		return s.resolvePayment(ctx, pr)
	case entities.PaymentRequestStatusError:
		if pr.ProcessingError.IsPaymentError() {
			return s.resolvePayment(ctx, pr)
		}
	case entities.PaymentRequestStatusRefundInProgress:
		return s.resolveRefund(ctx, pr)
	}
	return currentStatus(pr), nil
}

func (s *Service) resolvePayment(ctx context.Context, pr *entities.PaymentRequest) (entities.StatusInfo, error) {
	now := s.now()

	var order *entities.Order
	if pr.WalletAddress != "" {
		latest, err := s.orders.GetLatest(ctx, pr.ID)
		if err != nil {
			return entities.StatusInfo{}, err
		}
		order = latest
	}
	if order == nil {
		if pr.IsExpired(now) {
			return entities.ErrorStatusInfo(entities.ProcessingErrorPaymentExpired), nil
		}
		return currentStatus(pr), nil
	}

	txs, err := s.transactions.GetByWallet(ctx, pr.WalletAddress)
	if err != nil {
		return entities.StatusInfo{}, fmt.Errorf("get wallet transactions: %w", err)
	}

	var (
		observed int
		late     = decimal.Zero
		paid     = decimal.Zero
		paidDate time.Time
	)
	for _, tx := range txs {
		if !tx.IsPayment() || !paysOrder(tx, pr, order) {
			continue
		}
		if tx.FirstSeen != nil && tx.FirstSeen.After(order.ExtendedDueDate) {
			late = late.Add(tx.Amount)
			continue
		}
		observed++
		if !tx.IsConfirmed(s.config.TransactionConfirmationCount) {
			continue
		}
		paid = paid.Add(tx.Amount)
		if tx.FirstSeen != nil && tx.FirstSeen.After(paidDate) {
			paidDate = *tx.FirstSeen
		}
	}
	if paidDate.IsZero() {
		paidDate = now
	}

	if observed == 0 && late.IsPositive() {
		return expiredWith(late), nil
	}

	if paid.IsPositive() {
		actual, err := s.orders.GetActual(ctx, pr.ID, paidDate)
		if err != nil {
			return entities.StatusInfo{}, err
		}
		if actual == nil {
			return expiredWith(paid), nil
		}
		order = actual
	}

	asset, err := s.assets.GetAsset(ctx, pr.PaymentAssetID)
	if err != nil {
		return entities.StatusInfo{}, fmt.Errorf("get payment asset: %w", err)
	}

	fulfillment, err := pricing.AmountFulfillment(order.PaymentAmount, paid, asset.Accuracy)
	if err != nil {
		return entities.StatusInfo{}, err
	}

	switch fulfillment {
	case pricing.FulfillmentExact:
		return entities.ConfirmedStatusInfo(paid, paidDate), nil
	case pricing.FulfillmentAbove:
		info := entities.ErrorStatusInfo(entities.ProcessingErrorPaymentAmountAbove)
		info.Amount = paid
		return info, nil
	}

	if !pr.IsExpired(now) {
		return entities.NewStatusInfo(entities.PaymentRequestStatusInProcess), nil
	}
	if observed == 0 {
		return entities.ErrorStatusInfo(entities.ProcessingErrorPaymentExpired), nil
	}
	info := entities.ErrorStatusInfo(entities.ProcessingErrorPaymentAmountBelow)
	info.Amount = paid
	return info, nil
}

// expiredWith reports a payment that arrived after its order stopped accepting funds
func expiredWith(amount decimal.Decimal) entities.StatusInfo {
	info := entities.ErrorStatusInfo(entities.ProcessingErrorPaymentExpired)
	info.Amount = amount
	return info
}

// paysOrder reports whether tx counts toward the order. Wallets are reused, so
// transactions tagged for another request or seen before the order are skipped.
func paysOrder(tx *entities.PaymentRequestTransaction, pr *entities.PaymentRequest, order *entities.Order) bool {
	if tx.PaymentRequestID != nil && *tx.PaymentRequestID != pr.ID {
		return false
	}
	if tx.FirstSeen != nil && tx.FirstSeen.Before(order.CreatedDate) {
		return false
	}
	return true
}

func (s *Service) resolveRefund(ctx context.Context, pr *entities.PaymentRequest) (entities.StatusInfo, error) {
	txs, err := s.transactions.GetByPaymentRequest(ctx, pr.ID)
	if err != nil {
		return entities.StatusInfo{}, fmt.Errorf("get payment request transactions: %w", err)
	}

	now := s.now()
	var (
		refunds   int
		confirmed = true
		overdue   bool
	)
	for _, tx := range txs {
		if !tx.IsRefund() {
			continue
		}
		refunds++
		if !tx.IsConfirmed(s.config.TransactionConfirmationCount) {
			confirmed = false
		}
		if tx.DueDate != nil && now.After(*tx.DueDate) {
			overdue = true
		}
	}

	switch {
	case refunds == 0:
		return currentStatus(pr), nil
	case confirmed:
		return entities.NewStatusInfo(entities.PaymentRequestStatusRefunded), nil
	case overdue:
		return entities.ErrorStatusInfo(entities.ProcessingErrorRefundNotConfirmed), nil
	}
	return currentStatus(pr), nil
}
