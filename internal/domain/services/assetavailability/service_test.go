package assetavailability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/logger"
)

type MockGeneralRepository struct {
	mock.Mock
}

func (m *MockGeneralRepository) GetByType(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AssetAvailability), args.Error(1)
}

func (m *MockGeneralRepository) Set(ctx context.Context, availability *entities.AssetAvailability) error {
	return m.Called(ctx, availability).Error(0)
}

type MockPersonalRepository struct {
	mock.Mock
}

func (m *MockPersonalRepository) Get(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssetAvailabilityByMerchant), args.Error(1)
}

func (m *MockPersonalRepository) Set(ctx context.Context, availability *entities.AssetAvailabilityByMerchant) error {
	return m.Called(ctx, availability).Error(0)
}

type MockMarkupResolver struct {
	mock.Mock
}

func (m *MockMarkupResolver) Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error) {
	args := m.Called(ctx, merchantID, assetPairID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Markup), args.Error(1)
}

func enabled(t entities.AssetAvailabilityType, ids ...string) []*entities.AssetAvailability {
	list := make([]*entities.AssetAvailability, 0, len(ids))
	for _, id := range ids {
		list = append(list, &entities.AssetAvailability{AssetID: id, AvailabilityType: t, Available: true})
	}
	return list
}

type fixture struct {
	general  *MockGeneralRepository
	personal *MockPersonalRepository
	markups  *MockMarkupResolver
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		general:  new(MockGeneralRepository),
		personal: new(MockPersonalRepository),
		markups:  new(MockMarkupResolver),
	}
	f.svc = NewService(f.general, f.personal, f.markups, Defaults{
		PaymentAssets:    "BTC;ETH;LTC",
		SettlementAssets: "CHF;USD",
	}, logger.NewNop())
	return f
}

func TestResolveSettlement(t *testing.T) {
	t.Run("defaults intersected with general", func(t *testing.T) {
		f := newFixture()
		f.personal.On("Get", mock.Anything, "m1").Return(nil, nil)
		f.general.On("GetByType", mock.Anything, entities.AssetAvailabilitySettlement).
			Return(enabled(entities.AssetAvailabilitySettlement, "CHF", "EUR"), nil)

		got, err := f.svc.ResolveSettlement(context.Background(), "m1")

		require.NoError(t, err)
		assert.Equal(t, []string{"CHF"}, got)
	})

	t.Run("merchant list replaces defaults", func(t *testing.T) {
		f := newFixture()
		f.personal.On("Get", mock.Anything, "m1").Return(&entities.AssetAvailabilityByMerchant{
			MerchantID:       "m1",
			SettlementAssets: "EUR; USD",
		}, nil)
		f.general.On("GetByType", mock.Anything, entities.AssetAvailabilitySettlement).
			Return(enabled(entities.AssetAvailabilitySettlement, "CHF", "EUR", "USD"), nil)

		got, err := f.svc.ResolveSettlement(context.Background(), "m1")

		require.NoError(t, err)
		assert.Equal(t, []string{"EUR", "USD"}, got)
	})

	t.Run("empty merchant list falls back to defaults", func(t *testing.T) {
		f := newFixture()
		f.personal.On("Get", mock.Anything, "m1").Return(&entities.AssetAvailabilityByMerchant{
			MerchantID:    "m1",
			PaymentAssets: "BTC",
		}, nil)
		f.general.On("GetByType", mock.Anything, entities.AssetAvailabilitySettlement).
			Return(enabled(entities.AssetAvailabilitySettlement, "USD"), nil)

		got, err := f.svc.ResolveSettlement(context.Background(), "m1")

		require.NoError(t, err)
		assert.Equal(t, []string{"USD"}, got)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture()
		f.personal.On("Get", mock.Anything, "m1").Return(nil, errors.New("db down"))

		_, err := f.svc.ResolveSettlement(context.Background(), "m1")

		assert.EqualError(t, err, "get merchant availability: db down")
	})
}

func TestResolvePayment_SkipsAssetsWithoutMarkup(t *testing.T) {
	f := newFixture()
	f.personal.On("Get", mock.Anything, "m1").Return(nil, nil)
	f.general.On("GetByType", mock.Anything, entities.AssetAvailabilityPayment).
		Return(enabled(entities.AssetAvailabilityPayment, "BTC", "ETH", "LTC"), nil)
	f.markups.On("Resolve", mock.Anything, "m1", "BTCCHF").Return(&entities.Markup{}, nil)
	f.markups.On("Resolve", mock.Anything, "m1", "ETHCHF").Return(nil, domainerrors.MarkupNotFound("m1", "ETHCHF"))
	f.markups.On("Resolve", mock.Anything, "m1", "LTCCHF").Return(&entities.Markup{}, nil)

	got, err := f.svc.ResolvePayment(context.Background(), "m1", "CHF")

	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "LTC"}, got)
}

func TestResolvePayment_MarkupErrorIsReturned(t *testing.T) {
	f := newFixture()
	f.personal.On("Get", mock.Anything, "m1").Return(nil, nil)
	f.general.On("GetByType", mock.Anything, entities.AssetAvailabilityPayment).
		Return(enabled(entities.AssetAvailabilityPayment, "BTC"), nil)
	f.markups.On("Resolve", mock.Anything, "m1", "BTCCHF").Return(nil, errors.New("db down"))

	_, err := f.svc.ResolvePayment(context.Background(), "m1", "CHF")

	assert.EqualError(t, err, "db down")
}

func TestSetGeneral(t *testing.T) {
	f := newFixture()
	f.general.On("Set", mock.Anything, mock.MatchedBy(func(a *entities.AssetAvailability) bool {
		return a.AssetID == "BTC" && a.AvailabilityType == entities.AssetAvailabilityPayment && a.Available
	})).Return(nil)

	got, err := f.svc.SetGeneral(context.Background(), &entities.SetGeneralAvailabilityCommand{
		AssetID:          "BTC",
		AvailabilityType: entities.AssetAvailabilityPayment,
		Value:            true,
	})

	require.NoError(t, err)
	assert.True(t, got.Available)
	f.general.AssertExpectations(t)

	_, err = f.svc.SetGeneral(context.Background(), &entities.SetGeneralAvailabilityCommand{
		AssetID:          "BTC",
		AvailabilityType: "Other",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestSetPersonal(t *testing.T) {
	f := newFixture()
	f.personal.On("Set", mock.Anything, mock.MatchedBy(func(a *entities.AssetAvailabilityByMerchant) bool {
		return a.MerchantID == "m1" && a.PaymentAssets == "BTC" && a.SettlementAssets == "CHF"
	})).Return(nil)

	got, err := f.svc.SetPersonal(context.Background(), "m1", &entities.SetPersonalAvailabilityCommand{
		PaymentAssets:    "BTC",
		SettlementAssets: "CHF",
	})

	require.NoError(t, err)
	assert.Equal(t, "m1", got.MerchantID)
	f.personal.AssertExpectations(t)
}

func TestGetGeneral_RejectsUnknownType(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetGeneral(context.Background(), "Other")

	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	f.general.AssertNotCalled(t, "GetByType", mock.Anything, mock.Anything)
}

func TestGetPersonal_NotFound(t *testing.T) {
	f := newFixture()
	f.personal.On("Get", mock.Anything, "m1").Return(nil, nil)

	_, err := f.svc.GetPersonal(context.Background(), "m1")

	assert.True(t, domainerrors.IsNotFound(err))
}
