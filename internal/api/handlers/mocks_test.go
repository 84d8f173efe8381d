package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
)

type MockPaymentRequestService struct {
	mock.Mock
}

func (m *MockPaymentRequestService) Create(ctx context.Context, cmd *entities.CreatePaymentRequestCommand) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestService) Get(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, merchantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestService) GetByMerchant(ctx context.Context, merchantID string) ([]*entities.PaymentRequest, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestService) FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestService) Checkout(ctx context.Context, merchantID string, id uuid.UUID, force bool) (*paymentrequest.CheckoutResult, error) {
	args := m.Called(ctx, merchantID, id, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentrequest.CheckoutResult), args.Error(1)
}

func (m *MockPaymentRequestService) UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error {
	args := m.Called(ctx, walletAddress, explicit)
	return args.Error(0)
}

func (m *MockPaymentRequestService) HandleExpired(ctx context.Context) (*paymentrequest.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentrequest.SweepResult), args.Error(1)
}

func (m *MockPaymentRequestService) Cancel(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, merchantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestService) GetOrder(ctx context.Context, merchantID string, id, orderID uuid.UUID) (*entities.Order, error) {
	args := m.Called(ctx, merchantID, id, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Order), args.Error(1)
}

func (m *MockPaymentRequestService) GetNotExpiredWallets(ctx context.Context) ([]*entities.WalletState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WalletState), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Create(ctx context.Context, cmd *entities.CreateTransactionCommand) (*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequestTransaction), args.Error(1)
}

func (m *MockTransactionService) Update(ctx context.Context, cmd *entities.UpdateTransactionCommand) (*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequestTransaction), args.Error(1)
}

func (m *MockTransactionService) ReportTransfer(ctx context.Context, cmd *entities.TransferReportCommand) (*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequestTransaction), args.Error(1)
}

type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) Execute(ctx context.Context, req *entities.RefundRequest) (*entities.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RefundResult), args.Error(1)
}

func (m *MockRefundService) GetRefund(ctx context.Context, merchantID string, id uuid.UUID) (*entities.RefundRecord, error) {
	args := m.Called(ctx, merchantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RefundRecord), args.Error(1)
}

func (m *MockRefundService) GetRefundInfo(ctx context.Context, walletAddress string) (*entities.RefundInfo, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RefundInfo), args.Error(1)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) SetExpired(ctx context.Context, address string, blockchain entities.BlockchainType) error {
	args := m.Called(ctx, address, blockchain)
	return args.Error(0)
}

type MockMarkupService struct {
	mock.Mock
}

func (m *MockMarkupService) Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error) {
	args := m.Called(ctx, merchantID, assetPairID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Markup), args.Error(1)
}

func (m *MockMarkupService) Set(ctx context.Context, markup *entities.Markup) error {
	args := m.Called(ctx, markup)
	return args.Error(0)
}

type MockAssetAvailabilityService struct {
	mock.Mock
}

func (m *MockAssetAvailabilityService) ResolveSettlement(ctx context.Context, merchantID string) ([]string, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAssetAvailabilityService) ResolvePayment(ctx context.Context, merchantID, settlementAssetID string) ([]string, error) {
	args := m.Called(ctx, merchantID, settlementAssetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAssetAvailabilityService) GetGeneral(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AssetAvailability), args.Error(1)
}

func (m *MockAssetAvailabilityService) SetGeneral(ctx context.Context, cmd *entities.SetGeneralAvailabilityCommand) (*entities.AssetAvailability, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssetAvailability), args.Error(1)
}

func (m *MockAssetAvailabilityService) GetPersonal(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssetAvailabilityByMerchant), args.Error(1)
}

func (m *MockAssetAvailabilityService) SetPersonal(ctx context.Context, merchantID string, cmd *entities.SetPersonalAvailabilityCommand) (*entities.AssetAvailabilityByMerchant, error) {
	args := m.Called(ctx, merchantID, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssetAvailabilityByMerchant), args.Error(1)
}
