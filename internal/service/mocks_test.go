package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/fcf-tessere/unlock-server-go/internal/database"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/payment"
	"github.com/fcf-tessere/unlock-server-go/internal/repository"
)

// fakeCodeStore applies the same compare-and-swap rule as the SQL
// conditional update, with a mutex standing in for the row lock.
type fakeCodeStore struct {
	mu          sync.Mutex
	codes       map[string]*model.UnlockCode
	calls       int
	createCalls int
	createErrs  []error
	// racingWinner is inserted by the next Create, which then reports a
	// duplicate payment reference.
	racingWinner *model.UnlockCode
	err          error
}

var _ repository.UnlockCodeRepository = (*fakeCodeStore)(nil)

func newFakeCodeStore(seed ...*model.UnlockCode) *fakeCodeStore {
	s := &fakeCodeStore{codes: make(map[string]*model.UnlockCode)}
	for _, uc := range seed {
		s.codes[uc.Code] = uc
	}
	return s
}

func (s *fakeCodeStore) snapshot(code string) *model.UnlockCode {
	uc, ok := s.codes[code]
	if !ok {
		return nil
	}
	cp := *uc
	return &cp
}

func (s *fakeCodeStore) Create(ctx context.Context, params model.CreateUnlockCodeParams) (*model.UnlockCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.createCalls++

	if s.racingWinner != nil {
		s.codes[s.racingWinner.Code] = s.racingWinner
		s.racingWinner = nil
		return nil, repository.ErrDuplicatePayment
	}
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if _, exists := s.codes[params.Code]; exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateCode, params.Code)
	}
	for _, uc := range s.codes {
		if uc.PaymentReference == params.PaymentReference {
			return nil, repository.ErrDuplicatePayment
		}
	}

	uc := &model.UnlockCode{
		ID:               fmt.Sprintf("id-%d", len(s.codes)+1),
		Code:             params.Code,
		IssuingDeviceID:  params.IssuingDeviceID,
		PaymentReference: params.PaymentReference,
		MaxUses:          params.MaxUses,
		Active:           true,
		CreatedAt:        time.Now(),
	}
	s.codes[uc.Code] = uc
	return s.snapshot(uc.Code), nil
}

func (s *fakeCodeStore) FindByCode(ctx context.Context, code string) (*model.UnlockCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot(code), nil
}

func (s *fakeCodeStore) FindByPaymentReference(ctx context.Context, paymentReference string) (*model.UnlockCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for code, uc := range s.codes {
		if uc.PaymentReference == paymentReference {
			return s.snapshot(code), nil
		}
	}
	return nil, nil
}

func (s *fakeCodeStore) Redeem(ctx context.Context, code string, now time.Time) (model.RedeemOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return model.RedeemOutcome{}, s.err
	}

	uc, ok := s.codes[code]
	switch {
	case !ok:
		return model.RedeemOutcome{Status: model.RedeemNotFound}, nil
	case uc.Active && uc.UsedCount < uc.MaxUses:
		uc.UsedCount++
		uc.Active = uc.UsedCount < uc.MaxUses
		uc.LastUsedAt = &now
		return model.RedeemOutcome{Status: model.RedeemAccepted, Code: s.snapshot(code)}, nil
	case !uc.Active && uc.Exhausted():
		return model.RedeemOutcome{Status: model.RedeemExhausted, Code: s.snapshot(code)}, nil
	case !uc.Active:
		return model.RedeemOutcome{Status: model.RedeemDeactivated, Code: s.snapshot(code)}, nil
	default:
		uc.Active = false
		return model.RedeemOutcome{Status: model.RedeemLimitReached, Code: s.snapshot(code)}, nil
	}
}

func (s *fakeCodeStore) Deactivate(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	uc, ok := s.codes[code]
	if !ok {
		return false, nil
	}
	uc.Active = false
	return true, nil
}

func (s *fakeCodeStore) DeactivateByPaymentReference(ctx context.Context, paymentReference string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	var count int64
	for _, uc := range s.codes {
		if uc.PaymentReference == paymentReference && uc.Active {
			uc.Active = false
			count++
		}
	}
	return count, nil
}

func (s *fakeCodeStore) Stats(ctx context.Context) (model.CodeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats model.CodeStats
	for _, uc := range s.codes {
		switch uc.State() {
		case model.CodeStateActive:
			stats.Active++
		case model.CodeStateExhausted:
			stats.Exhausted++
		case model.CodeStateDeactivated:
			stats.Deactivated++
		}
	}
	return stats, nil
}

func (s *fakeCodeStore) WithTx(tx *sqlx.Tx) repository.UnlockCodeRepository {
	return s
}

type fakeDeviceStore struct {
	mu        sync.Mutex
	devices   map[string]*model.PaidDevice
	calls     int
	upsertErr error
}

var _ repository.PaidDeviceRepository = (*fakeDeviceStore)(nil)

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{devices: make(map[string]*model.PaidDevice)}
}

func (s *fakeDeviceStore) Upsert(ctx context.Context, params model.UpsertPaidDeviceParams) (*model.PaidDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	pd := &model.PaidDevice{
		DeviceID:         params.DeviceID,
		UnlockCode:       params.UnlockCode,
		PaymentReference: params.PaymentReference,
		Amount:           params.Amount,
		Currency:         params.Currency,
		PaidAt:           params.PaidAt,
	}
	s.devices[params.DeviceID] = pd
	cp := *pd
	return &cp, nil
}

func (s *fakeDeviceStore) FindByDeviceID(ctx context.Context, deviceID string) (*model.PaidDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	pd, ok := s.devices[deviceID]
	if !ok {
		return nil, nil
	}
	cp := *pd
	return &cp, nil
}

func (s *fakeDeviceStore) WithTx(tx *sqlx.Tx) repository.PaidDeviceRepository {
	return s
}

type fakeTxRunner struct {
	calls int
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	r.calls++
	return fn(nil)
}

// sequenceGenerator returns its codes in order and then repeats the last one.
type sequenceGenerator struct {
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate() string {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i]
}

type mockProvider struct {
	mock.Mock
}

var _ payment.Provider = (*mockProvider)(nil)

func (m *mockProvider) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*model.PaymentIntent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

func (m *mockProvider) RetrieveIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signatureHeader string) (*model.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventStore) ForgetEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type mockEventHandler struct {
	mock.Mock
}

func (m *mockEventHandler) IssueFromEvent(ctx context.Context, event *model.WebhookEvent) (*IssueResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IssueResult), args.Error(1)
}

func (m *mockEventHandler) HandleRefund(ctx context.Context, paymentReference string) (int64, error) {
	args := m.Called(ctx, paymentReference)
	return args.Get(0).(int64), args.Error(1)
}

func activeCode(code string, used, maxUses int) *model.UnlockCode {
	return &model.UnlockCode{
		ID:               "id-" + code,
		Code:             code,
		PaymentReference: "pi_" + code[len(code)-4:],
		UsedCount:        used,
		MaxUses:          maxUses,
		Active:           used < maxUses,
	}
}
