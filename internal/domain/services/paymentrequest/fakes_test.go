package paymentrequest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
)

type memoryRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]entities.PaymentRequest
	clock    func() time.Time
}

func newMemoryRepository(prs ...*entities.PaymentRequest) *memoryRepository {
	r := &memoryRepository{requests: make(map[uuid.UUID]entities.PaymentRequest), clock: time.Now}
	for _, pr := range prs {
		r.requests[pr.ID] = *pr
	}
	return r
}

func (r *memoryRepository) Create(_ context.Context, pr *entities.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[pr.ID] = *pr
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (r *memoryRepository) GetByMerchant(_ context.Context, merchantID string) ([]*entities.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentRequest
	for _, pr := range r.requests {
		if pr.MerchantID == merchantID {
			pr := pr
			out = append(out, &pr)
		}
	}
	return out, nil
}

func (r *memoryRepository) FindByWalletAddress(_ context.Context, address string) (*entities.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *entities.PaymentRequest
	for _, pr := range r.requests {
		if pr.WalletAddress == address && (found == nil || boundAt(&pr).After(boundAt(found))) {
			pr := pr
			found = &pr
		}
	}
	return found, nil
}

func boundAt(pr *entities.PaymentRequest) time.Time {
	if pr.WalletBoundAt != nil {
		return *pr.WalletBoundAt
	}
	return pr.Timestamp
}

func (r *memoryRepository) GetWithWalletDueAfter(_ context.Context, after time.Time) ([]*entities.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentRequest
	for _, pr := range r.requests {
		if pr.WalletAddress != "" && pr.DueDate.After(after) {
			pr := pr
			out = append(out, &pr)
		}
	}
	return out, nil
}

func (r *memoryRepository) GetByStatusesDueBefore(_ context.Context, statuses []entities.PaymentRequestStatus, before time.Time, limit int) ([]*entities.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentRequest
	for _, pr := range r.requests {
		for _, st := range statuses {
			if pr.Status == st && pr.DueDate.Before(before) && len(out) < limit {
				pr := pr
				out = append(out, &pr)
			}
		}
	}
	return out, nil
}

func (r *memoryRepository) BindWallet(_ context.Context, id uuid.UUID, address string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr := r.requests[id]
	if pr.WalletAddress != "" && pr.WalletAddress != address {
		return false, nil
	}
	if pr.WalletAddress != address {
		at := r.clock()
		pr.WalletBoundAt = &at
	}
	pr.WalletAddress = address
	r.requests[id] = pr
	return true, nil
}

func (r *memoryRepository) SetOrder(_ context.Context, id, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr := r.requests[id]
	pr.OrderID = &orderID
	r.requests[id] = pr
	return nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, expected, next entities.StatusInfo, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.requests[id]
	if !ok || pr.Status != expected.Status || pr.ProcessingError != expected.ProcessingError {
		return false, nil
	}
	pr.Status = next.Status
	pr.ProcessingError = next.ProcessingError
	if next.Date != nil {
		pr.PaidAmount = next.Amount
		pr.PaidDate = next.Date
	}
	r.requests[id] = pr
	return true, nil
}

func (r *memoryRepository) stored(id uuid.UUID) entities.PaymentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[id]
}

type fakeOrders struct {
	latest  map[uuid.UUID]*entities.Order
	all     []*entities.Order
	created int
	now     time.Time
}

func newFakeOrders(now time.Time) *fakeOrders {
	return &fakeOrders{latest: make(map[uuid.UUID]*entities.Order), now: now}
}

func (f *fakeOrders) put(o *entities.Order) {
	f.latest[o.PaymentRequestID] = o
	f.all = append(f.all, o)
}

func (f *fakeOrders) Get(_ context.Context, paymentRequestID, orderID uuid.UUID) (*entities.Order, error) {
	for _, o := range f.all {
		if o.ID == orderID && o.PaymentRequestID == paymentRequestID {
			return o, nil
		}
	}
	return nil, domainerrors.TypedNotFound(domainerrors.CodeOrderNotFound, "order", orderID.String())
}

func (f *fakeOrders) GetLatest(_ context.Context, id uuid.UUID) (*entities.Order, error) {
	return f.latest[id], nil
}

func (f *fakeOrders) GetActual(_ context.Context, id uuid.UUID, at time.Time) (*entities.Order, error) {
	o := f.latest[id]
	if o == nil || at.After(o.ExtendedDueDate) {
		return nil, nil
	}
	return o, nil
}

func (f *fakeOrders) GetLatestOrCreate(_ context.Context, pr *entities.PaymentRequest, force bool) (*entities.Order, error) {
	if o, ok := f.latest[pr.ID]; ok && !force && o.IsValidAt(f.now) {
		return o, nil
	}
	f.created++
	o := &entities.Order{
		ID:               uuid.New(),
		PaymentRequestID: pr.ID,
		PaymentAmount:    pr.Amount,
		DueDate:          f.now.Add(10 * time.Minute),
		ExtendedDueDate:  f.now.Add(20 * time.Minute),
		CreatedDate:      f.now,
	}
	f.put(o)
	return o, nil
}

type fakeTransactions struct {
	txs []*entities.PaymentRequestTransaction
}

func (f *fakeTransactions) GetByWallet(_ context.Context, address string) ([]*entities.PaymentRequestTransaction, error) {
	var out []*entities.PaymentRequestTransaction
	for _, tx := range f.txs {
		if tx.WalletAddress == address {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTransactions) GetByPaymentRequest(_ context.Context, id uuid.UUID) ([]*entities.PaymentRequestTransaction, error) {
	var out []*entities.PaymentRequestTransaction
	for _, tx := range f.txs {
		if tx.PaymentRequestID != nil && *tx.PaymentRequestID == id {
			out = append(out, tx)
		}
	}
	return out, nil
}

type staticAssets map[string]*entities.Asset

func (s staticAssets) GetAsset(_ context.Context, id string) (*entities.Asset, error) {
	return s[id], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entities.StatusTransitionEvent
}

func (p *recordingPublisher) PublishStatusTransition(_ context.Context, event *entities.StatusTransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type MockWalletAllocator struct {
	mock.Mock
}

func (m *MockWalletAllocator) Allocate(ctx context.Context, merchantID string, blockchain entities.BlockchainType, occupiedBy string) (string, error) {
	args := m.Called(ctx, merchantID, blockchain, occupiedBy)
	return args.String(0), args.Error(1)
}

type MockLeaseLedger struct {
	mock.Mock
}

func (m *MockLeaseLedger) ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string) (bool, error) {
	args := m.Called(ctx, address, blockchain, occupiedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeaseLedger) GetOccupied(ctx context.Context) ([]*entities.WalletLease, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WalletLease), args.Error(1)
}
