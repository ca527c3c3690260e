package hits_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"webring/internal/hits"
	"webring/internal/hits/mocks"
	"webring/pkg/platform/sentinel"
	"webring/pkg/requestcontext"
)

const (
	browserUA = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	crawlerUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type RecorderSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	metrics  *hits.Metrics
	recorder *hits.Recorder
	now      time.Time
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = hits.NewMetrics(prometheus.NewRegistry())
	s.recorder = hits.NewRecorder(s.store,
		hits.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		hits.WithMetrics(s.metrics),
	)
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *RecorderSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RecorderSuite) TestAppendsHashedVisitorAtRequestTime() {
	want, err := hits.HashVisitor("203.0.113.7")
	s.Require().NoError(err)
	s.store.EXPECT().Append(gomock.Any(), "alice", want, s.now).Return(nil)

	err = s.recorder.Record(s.ctx, "alice", "203.0.113.7", browserUA)

	s.Require().NoError(err)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Recorded))
}

func (s *RecorderSuite) TestEmptyUserAgentIsRecorded() {
	s.store.EXPECT().Append(gomock.Any(), "alice", gomock.Any(), s.now).Return(nil)

	s.Require().NoError(s.recorder.Record(s.ctx, "alice", "203.0.113.7", ""))
}

func (s *RecorderSuite) TestCrawlerIsSkipped() {
	err := s.recorder.Record(s.ctx, "alice", "203.0.113.7", crawlerUA)

	s.ErrorIs(err, hits.ErrBotSkipped)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Skipped.WithLabelValues("bot")))
	s.Equal(0.0, promtest.ToFloat64(s.metrics.Recorded))
}

func (s *RecorderSuite) TestUnparseableAddressIsRejected() {
	err := s.recorder.Record(s.ctx, "alice", "not-an-ip", browserUA)

	s.ErrorIs(err, sentinel.ErrInvalidInput)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Skipped.WithLabelValues("bad_address")))
}

func (s *RecorderSuite) TestStoreFailureIsReturned() {
	storeErr := errors.New("disk full")
	s.store.EXPECT().Append(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(storeErr)

	err := s.recorder.Record(s.ctx, "alice", "203.0.113.7", browserUA)

	s.ErrorIs(err, storeErr)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.AppendFailures))
	s.Equal(0.0, promtest.ToFloat64(s.metrics.Recorded))
}

func TestRecorderWithoutMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), "bob", gomock.Any(), gomock.Any()).Return(nil)

	r := hits.NewRecorder(store)
	if err := r.Record(context.Background(), "bob", "::1", browserUA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
