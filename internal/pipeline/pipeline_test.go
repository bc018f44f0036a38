package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type stubEmailRepo struct {
	recent []*domain.Email
	err    error
}

func (r *stubEmailRepo) Create(dbctx.Context, *domain.Email) (bool, error) { return false, nil }
func (r *stubEmailRepo) GetByID(dbctx.Context, string) (*domain.Email, error) {
	return nil, domain.ErrNotFound
}
func (r *stubEmailRepo) GetByIDs(dbctx.Context, []string) ([]*domain.Email, error) { return nil, nil }
func (r *stubEmailRepo) ListUnprocessed(dbctx.Context, int) ([]*domain.Email, error) {
	return nil, nil
}
func (r *stubEmailRepo) ListRecentDisputes(dbctx.Context, time.Time, int) ([]*domain.Email, error) {
	return r.recent, r.err
}
func (r *stubEmailRepo) SetClassification(dbctx.Context, string, domain.Classification, datatypes.JSON) error {
	return nil
}
func (r *stubEmailRepo) SetSupplier(dbctx.Context, string, uuid.UUID) error { return nil }

type countingStorer struct {
	mu     sync.Mutex
	stored []string
	fail   map[string]error
}

func (s *countingStorer) StoreDisputeDocument(_ context.Context, email *domain.Email) error {
	if err := s.fail[email.ID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, email.ID)
	return nil
}

func testService(emails *stubEmailRepo, storer *countingStorer) *Service {
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	return NewService(nil, log, nil, nil, emails, storer)
}

func TestBackfillResubmitsRecentDisputes(t *testing.T) {
	emails := &stubEmailRepo{recent: []*domain.Email{
		{ID: "msg-1"}, {ID: "msg-2"}, {ID: "msg-3"},
	}}
	storer := &countingStorer{}

	svc := testService(emails, storer)
	n, err := svc.backfillRecentDisputes(context.Background(), Params{Days: 7, BackfillWorkers: 2})
	if err != nil {
		t.Fatalf("backfill: unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("backfilled count: want=3 got=%d", n)
	}
	if len(storer.stored) != 3 {
		t.Fatalf("stored count: want=3 got=%d", len(storer.stored))
	}
}

func TestBackfillPropagatesEngineError(t *testing.T) {
	emails := &stubEmailRepo{recent: []*domain.Email{
		{ID: "msg-1"}, {ID: "msg-2"},
	}}
	storer := &countingStorer{fail: map[string]error{"msg-2": errors.New("embedding provider down")}}

	svc := testService(emails, storer)
	if _, err := svc.backfillRecentDisputes(context.Background(), Params{Days: 7, BackfillWorkers: 1}); err == nil {
		t.Fatalf("expected error from failing backfill")
	}
}

func TestBackfillEmptyWindow(t *testing.T) {
	svc := testService(&stubEmailRepo{}, &countingStorer{})
	n, err := svc.backfillRecentDisputes(context.Background(), Params{Days: 7, BackfillWorkers: 2})
	if err != nil {
		t.Fatalf("backfill: unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("backfilled count: want=0 got=%d", n)
	}
}
