package entities

import "fmt"

// PaymentRequestStatus represents the lifecycle status of a payment request
type PaymentRequestStatus string

const (
	PaymentRequestStatusNone             PaymentRequestStatus = "None"
	PaymentRequestStatusNew              PaymentRequestStatus = "New"
	PaymentRequestStatusInProcess        PaymentRequestStatus = "InProcess"
	PaymentRequestStatusConfirmed        PaymentRequestStatus = "Confirmed"
	PaymentRequestStatusError            PaymentRequestStatus = "Error"
	PaymentRequestStatusRefundInProgress PaymentRequestStatus = "RefundInProgress"
	PaymentRequestStatusRefunded         PaymentRequestStatus = "Refunded"
	PaymentRequestStatusCancelled        PaymentRequestStatus = "Cancelled"
)

// ProcessingError is the sub-kind carried by the Error status
type ProcessingError string

const (
	ProcessingErrorNone               ProcessingError = ""
	ProcessingErrorPaymentAmountAbove ProcessingError = "PaymentAmountAbove"
	ProcessingErrorPaymentAmountBelow ProcessingError = "PaymentAmountBelow"
	ProcessingErrorPaymentExpired     ProcessingError = "PaymentExpired"
	ProcessingErrorRefundNotConfirmed ProcessingError = "RefundNotConfirmed"
)

// ValidPaymentRequestStatuses contains all valid statuses
var ValidPaymentRequestStatuses = map[PaymentRequestStatus]bool{
	PaymentRequestStatusNone:             true,
	PaymentRequestStatusNew:              true,
	PaymentRequestStatusInProcess:        true,
	PaymentRequestStatusConfirmed:        true,
	PaymentRequestStatusError:            true,
	PaymentRequestStatusRefundInProgress: true,
	PaymentRequestStatusRefunded:         true,
	PaymentRequestStatusCancelled:        true,
}

// ValidPaymentRequestTransitions defines allowed status changes. Staying in the
// same status is always allowed and handled as a no-op by the state machine.
// Error may still move to Confirmed when a late payment lands during the wallet grace period.
var ValidPaymentRequestTransitions = map[PaymentRequestStatus][]PaymentRequestStatus{
	PaymentRequestStatusNone:             {PaymentRequestStatusNew, PaymentRequestStatusInProcess, PaymentRequestStatusConfirmed, PaymentRequestStatusError, PaymentRequestStatusCancelled},
	PaymentRequestStatusNew:              {PaymentRequestStatusInProcess, PaymentRequestStatusConfirmed, PaymentRequestStatusError, PaymentRequestStatusCancelled},
	PaymentRequestStatusInProcess:        {PaymentRequestStatusConfirmed, PaymentRequestStatusError, PaymentRequestStatusCancelled},
	PaymentRequestStatusConfirmed:        {PaymentRequestStatusRefundInProgress},
	PaymentRequestStatusError:            {PaymentRequestStatusConfirmed, PaymentRequestStatusRefundInProgress},
	PaymentRequestStatusRefundInProgress: {PaymentRequestStatusRefunded, PaymentRequestStatusError},
	PaymentRequestStatusRefunded:         {}, // Terminal state
	PaymentRequestStatusCancelled:        {}, // Terminal state
}

// IsValid checks if the status is a valid payment request status
func (s PaymentRequestStatus) IsValid() bool {
	return ValidPaymentRequestStatuses[s]
}

// CanTransitionTo checks if transition to new status is allowed
func (s PaymentRequestStatus) CanTransitionTo(newStatus PaymentRequestStatus) bool {
	if s == newStatus {
		return true
	}
	for _, status := range ValidPaymentRequestTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsActive reports whether the request still needs its wallet
func (s PaymentRequestStatus) IsActive() bool {
	return s == PaymentRequestStatusNew || s == PaymentRequestStatusInProcess || s == PaymentRequestStatusRefundInProgress
}

// IsTerminal returns true if this is a terminal state
func (s PaymentRequestStatus) IsTerminal() bool {
	return s == PaymentRequestStatusRefunded || s == PaymentRequestStatusCancelled
}

// AllowsCheckout reports whether checkout may run in this status
func (s PaymentRequestStatus) AllowsCheckout() bool {
	return s == PaymentRequestStatusNone || s == PaymentRequestStatusNew || s == PaymentRequestStatusInProcess
}

// AllowsRefund reports whether a refund may be started in this status
func (s PaymentRequestStatus) AllowsRefund() bool {
	return s == PaymentRequestStatusConfirmed || s == PaymentRequestStatusError
}

// ValidateTransition validates and returns error if transition is invalid
func (s PaymentRequestStatus) ValidateTransition(newStatus PaymentRequestStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid payment request status: %s", newStatus)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s", s, newStatus)
	}
	return nil
}

// IsPaymentError reports whether e came from payment amount resolution
func (e ProcessingError) IsPaymentError() bool {
	return e == ProcessingErrorPaymentAmountAbove || e == ProcessingErrorPaymentAmountBelow || e == ProcessingErrorPaymentExpired
}
