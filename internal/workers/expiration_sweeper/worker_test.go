package expiration_sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) HandleExpired(ctx context.Context) (*paymentrequest.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentrequest.SweepResult), args.Error(1)
}

func TestRunOnce(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("HandleExpired", mock.Anything).Return(&paymentrequest.SweepResult{Expired: 2, Released: 1}, nil).Once()

	w := NewWorker(sweeper, "", zap.NewNop())
	result, err := w.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired)
	assert.Equal(t, 1, result.Released)
	sweeper.AssertExpectations(t)
}

func TestRunOnce_Error(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("HandleExpired", mock.Anything).Return(nil, errors.New("db down"))

	w := NewWorker(sweeper, "", zap.NewNop())
	_, err := w.RunOnce(context.Background())

	assert.EqualError(t, err, "db down")
}

func TestStart_InvalidSchedule(t *testing.T) {
	w := NewWorker(new(MockSweeper), "every now and then", zap.NewNop())

	err := w.Start()

	assert.ErrorContains(t, err, "invalid expiration schedule")
}

func TestStartAndShutdown(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("HandleExpired", mock.Anything).Return(&paymentrequest.SweepResult{}, nil).Maybe()

	w := NewWorker(sweeper, "@every 1h", zap.NewNop())
	require.NoError(t, w.Start())

	assert.NoError(t, w.Shutdown(time.Second))
}
