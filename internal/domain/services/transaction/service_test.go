package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/logger"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, tx *entities.PaymentRequestTransaction) (*entities.PaymentRequestTransaction, bool, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.PaymentRequestTransaction), args.Bool(1), args.Error(2)
}

func (m *MockTransactionRepository) GetByIdentity(ctx context.Context, blockchain entities.BlockchainType, identityType entities.TransactionIdentityType, identity string) (*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, blockchain, identityType, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequestTransaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByWallet(ctx context.Context, address string) ([]*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRequestTransaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) ([]*entities.PaymentRequestTransaction, error) {
	args := m.Called(ctx, paymentRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRequestTransaction), args.Error(1)
}

type MockPaymentRequestFinder struct {
	mock.Mock
}

func (m *MockPaymentRequestFinder) FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

type MockStatusUpdater struct {
	mock.Mock
}

func (m *MockStatusUpdater) UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error {
	args := m.Called(ctx, walletAddress, explicit)
	return args.Error(0)
}

type recordingPublisher struct {
	events []*entities.TransactionEvent
}

func (p *recordingPublisher) PublishTransaction(_ context.Context, event *entities.TransactionEvent) error {
	p.events = append(p.events, event)
	return nil
}

func createCommand() *entities.CreateTransactionCommand {
	return &entities.CreateTransactionCommand{
		TransactionID: "tx-1",
		Blockchain:    entities.BlockchainBitcoin,
		IdentityType:  entities.TransactionIdentityHash,
		Identity:      "hash-1",
		Amount:        decimal.RequireFromString("0.5"),
		AssetID:       "BTC",
		Confirmations: 1,
		WalletAddress: "addr-1",
		Type:          entities.TransactionTypePayment,
	}
}

func TestCreate_RecordsAndRefreshesStatus(t *testing.T) {
	repo := new(MockTransactionRepository)
	finder := new(MockPaymentRequestFinder)
	statuses := new(MockStatusUpdater)
	events := &recordingPublisher{}
	svc := NewService(repo, finder, statuses, events, logger.NewNop())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	pr := &entities.PaymentRequest{ID: uuid.New(), WalletAddress: "addr-1"}
	finder.On("FindByWallet", mock.Anything, "addr-1").Return(pr, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(tx *entities.PaymentRequestTransaction) bool {
		return *tx.PaymentRequestID == pr.ID && tx.Identity == "hash-1" && tx.FirstSeen.Equal(now)
	})).Return(&entities.PaymentRequestTransaction{Identity: "hash-1", WalletAddress: "addr-1"}, true, nil)
	statuses.On("UpdateStatus", mock.Anything, "addr-1", (*entities.StatusInfo)(nil)).Return(nil)

	tx, err := svc.Create(context.Background(), createCommand())

	require.NoError(t, err)
	assert.Equal(t, "hash-1", tx.Identity)
	require.Len(t, events.events, 1)
	assert.Equal(t, entities.TransactionEventCreated, events.events[0].Kind)
	mock.AssertExpectationsForObjects(t, repo, finder, statuses)
}

func TestCreate_ReplayIsReportedAsUpdate(t *testing.T) {
	repo := new(MockTransactionRepository)
	finder := new(MockPaymentRequestFinder)
	statuses := new(MockStatusUpdater)
	events := &recordingPublisher{}
	svc := NewService(repo, finder, statuses, events, logger.NewNop())

	finder.On("FindByWallet", mock.Anything, "addr-1").Return(&entities.PaymentRequest{ID: uuid.New()}, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(&entities.PaymentRequestTransaction{Identity: "hash-1"}, false, nil)
	statuses.On("UpdateStatus", mock.Anything, "addr-1", mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), createCommand())

	require.NoError(t, err)
	require.Len(t, events.events, 1)
	assert.Equal(t, entities.TransactionEventUpdated, events.events[0].Kind)
}

func TestCreate_UnknownWallet(t *testing.T) {
	repo := new(MockTransactionRepository)
	finder := new(MockPaymentRequestFinder)
	svc := NewService(repo, finder, new(MockStatusUpdater), nil, logger.NewNop())
	finder.On("FindByWallet", mock.Anything, "addr-1").Return(nil, domainerrors.PaymentRequestNotFound("addr-1"))

	_, err := svc.Create(context.Background(), createCommand())

	assert.True(t, domainerrors.HasCode(err, domainerrors.CodePaymentRequestNotFound))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(new(MockTransactionRepository), new(MockPaymentRequestFinder), new(MockStatusUpdater), nil, logger.NewNop())

	cmd := createCommand()
	cmd.Blockchain = entities.BlockchainNone
	_, err := svc.Create(context.Background(), cmd)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeBlockchainNotSupported))

	cmd = createCommand()
	cmd.Amount = decimal.NewFromInt(-1)
	_, err = svc.Create(context.Background(), cmd)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))
}

func TestUpdate_MergesAndUsesStoredWallet(t *testing.T) {
	repo := new(MockTransactionRepository)
	statuses := new(MockStatusUpdater)
	svc := NewService(repo, new(MockPaymentRequestFinder), statuses, nil, logger.NewNop())

	existing := &entities.PaymentRequestTransaction{
		Blockchain:    entities.BlockchainBitcoin,
		IdentityType:  entities.TransactionIdentityHash,
		Identity:      "hash-1",
		Amount:        decimal.RequireFromString("0.5"),
		Confirmations: 4,
		WalletAddress: "addr-1",
	}
	repo.On("GetByIdentity", mock.Anything, entities.BlockchainBitcoin, entities.TransactionIdentityHash, "hash-1").Return(existing, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(tx *entities.PaymentRequestTransaction) bool {
		return tx.Confirmations == 4 && tx.BlockID == "block-9" && tx.Amount.Equal(decimal.RequireFromString("0.5"))
	})).Return(existing, false, nil)
	statuses.On("UpdateStatus", mock.Anything, "addr-1", (*entities.StatusInfo)(nil)).Return(nil)

	_, err := svc.Update(context.Background(), &entities.UpdateTransactionCommand{
		Blockchain:    entities.BlockchainBitcoin,
		IdentityType:  entities.TransactionIdentityHash,
		Identity:      "hash-1",
		Confirmations: 2,
		BlockID:       "block-9",
	})

	require.NoError(t, err)
	mock.AssertExpectationsForObjects(t, repo, statuses)
}

func TestUpdate_UnknownTransaction(t *testing.T) {
	repo := new(MockTransactionRepository)
	svc := NewService(repo, new(MockPaymentRequestFinder), new(MockStatusUpdater), nil, logger.NewNop())
	repo.On("GetByIdentity", mock.Anything, entities.BlockchainEthereum, entities.TransactionIdentitySpecific, "op-1").Return(nil, nil)

	_, err := svc.Update(context.Background(), &entities.UpdateTransactionCommand{
		Blockchain:   entities.BlockchainEthereum,
		IdentityType: entities.TransactionIdentitySpecific,
		Identity:     "op-1",
	})

	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeTransactionNotFound))
}

func TestUpdate_StatusFailureIsReturned(t *testing.T) {
	repo := new(MockTransactionRepository)
	statuses := new(MockStatusUpdater)
	svc := NewService(repo, new(MockPaymentRequestFinder), statuses, nil, logger.NewNop())
	existing := &entities.PaymentRequestTransaction{Identity: "hash-1", WalletAddress: "addr-1"}
	repo.On("GetByIdentity", mock.Anything, mock.Anything, mock.Anything, "hash-1").Return(existing, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(existing, false, nil)
	statuses.On("UpdateStatus", mock.Anything, "addr-2", mock.Anything).Return(errors.New("db down"))

	_, err := svc.Update(context.Background(), &entities.UpdateTransactionCommand{
		Blockchain:    entities.BlockchainBitcoin,
		IdentityType:  entities.TransactionIdentityHash,
		Identity:      "hash-1",
		WalletAddress: "addr-2",
	})

	assert.EqualError(t, err, "update payment request status: db down")
}

func TestReportTransfer_AttachesHash(t *testing.T) {
	repo := new(MockTransactionRepository)
	statuses := new(MockStatusUpdater)
	events := &recordingPublisher{}
	svc := NewService(repo, new(MockPaymentRequestFinder), statuses, events, logger.NewNop())

	existing := &entities.PaymentRequestTransaction{
		Blockchain:    entities.BlockchainEthereum,
		IdentityType:  entities.TransactionIdentitySpecific,
		Identity:      "op-1",
		WalletAddress: "0xwallet",
	}
	repo.On("GetByIdentity", mock.Anything, entities.BlockchainEthereum, entities.TransactionIdentitySpecific, "op-1").Return(existing, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(tx *entities.PaymentRequestTransaction) bool {
		return tx.TransactionID == "0xhash"
	})).Return(existing, false, nil)
	statuses.On("UpdateStatus", mock.Anything, "0xwallet", (*entities.StatusInfo)(nil)).Return(nil)

	tx, err := svc.ReportTransfer(context.Background(), &entities.TransferReportCommand{
		TransferID:      "op-1",
		TransactionHash: "0xhash",
	})

	require.NoError(t, err)
	assert.Equal(t, "0xhash", tx.TransactionID)
	require.Len(t, events.events, 1)
	mock.AssertExpectationsForObjects(t, repo, statuses)
}

func TestReportTransfer_SameHashIsNoop(t *testing.T) {
	repo := new(MockTransactionRepository)
	statuses := new(MockStatusUpdater)
	svc := NewService(repo, new(MockPaymentRequestFinder), statuses, nil, logger.NewNop())

	existing := &entities.PaymentRequestTransaction{Identity: "op-1", TransactionID: "0xhash"}
	repo.On("GetByIdentity", mock.Anything, entities.BlockchainEthereum, entities.TransactionIdentitySpecific, "op-1").Return(existing, nil)

	_, err := svc.ReportTransfer(context.Background(), &entities.TransferReportCommand{
		TransferID:      "op-1",
		TransactionHash: "0xhash",
	})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	statuses.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportTransfer_Errors(t *testing.T) {
	repo := new(MockTransactionRepository)
	svc := NewService(repo, new(MockPaymentRequestFinder), new(MockStatusUpdater), nil, logger.NewNop())
	repo.On("GetByIdentity", mock.Anything, entities.BlockchainEthereum, entities.TransactionIdentitySpecific, "op-404").Return(nil, nil)

	_, err := svc.ReportTransfer(context.Background(), &entities.TransferReportCommand{TransferID: "op-404", TransactionHash: "0xhash"})
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeTransactionNotFound))

	_, err = svc.ReportTransfer(context.Background(), &entities.TransferReportCommand{TransferID: "op-1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = svc.ReportTransfer(context.Background(), &entities.TransferReportCommand{
		TransferID:      "op-1",
		TransactionHash: "0xhash",
		Blockchain:      entities.BlockchainNone,
	})
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeBlockchainNotSupported))
}
