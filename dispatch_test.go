package multisend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/iov-one/multisend/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func outcomeNumbers(r *Report) []int {
	nums := make([]int, len(r.Outcomes))
	for i, o := range r.Outcomes {
		nums[i] = o.BatchNumber
	}
	return nums
}

func failedIDs(r *Report) []uint64 {
	var ids []uint64
	for _, m := range r.Failed() {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestDispatchScenarios(t *testing.T) {
	Convey("Given a dispatch engine", t, func() {
		ctx := context.Background()

		Convey("10 messages in batches of 3 that all succeed", func() {
			engine, err := NewEngine(testConfig(3))
			So(err, ShouldBeNil)
			signer := newTestSigner()

			report, err := engine.Dispatch(ctx, signer, testMessages(10))
			So(err, ShouldBeNil)

			So(report.Outcomes, ShouldHaveLength, 4)
			for i, o := range report.Outcomes {
				So(o.BatchNumber, ShouldEqual, i+1)
				So(o.Success, ShouldBeTrue)
				So(o.TxHash, ShouldEqual, fmt.Sprintf("HASH%d", i+1))
			}
			So(report.Failed(), ShouldBeEmpty)
			So(report.Halted, ShouldBeFalse)
			So(report.AnySucceeded(), ShouldBeTrue)
			So(signer.broadcasts(), ShouldEqual, 4)
			So(signer.memos, ShouldResemble, []string{
				"Multisend ATOM Batch #1",
				"Multisend ATOM Batch #2",
				"Multisend ATOM Batch #3",
				"Multisend ATOM Batch #4",
			})
		})

		Convey("5 messages in a single batch that fails once and is retried", func() {
			engine, err := NewEngine(testConfig(5), WithDecisionMaker(Always(DecisionRetry)))
			So(err, ShouldBeNil)
			signer := newTestSigner(attempt{fail: true})

			report, err := engine.Dispatch(ctx, signer, testMessages(5))
			So(err, ShouldBeNil)

			So(report.Outcomes, ShouldResemble, []Outcome{
				{BatchNumber: 1, Success: true, TxHash: "HASH2"},
			})
			So(report.Failed(), ShouldBeEmpty)
			So(signer.broadcasts(), ShouldEqual, 2)
		})

		Convey("6 messages in batches of 2 where the second one fails and the run is stopped", func() {
			engine, err := NewEngine(testConfig(2), WithDecisionMaker(Always(DecisionStop)))
			So(err, ShouldBeNil)
			signer := newTestSigner(attempt{}, attempt{fail: true})

			report, err := engine.Dispatch(ctx, signer, testMessages(6))
			So(err, ShouldBeNil)

			So(report.Outcomes, ShouldResemble, []Outcome{
				{BatchNumber: 1, Success: true, TxHash: "HASH1"},
				{BatchNumber: 2},
			})
			So(failedIDs(report), ShouldResemble, []uint64{3, 4})
			So(report.Halted, ShouldBeTrue)
			So(report.Remaining, ShouldHaveLength, 1)
			So(report.Remaining[0].Number, ShouldEqual, 3)
			So(signer.broadcasts(), ShouldEqual, 2)

			Convey("undelivered messages include the batch that was never attempted", func() {
				var ids []uint64
				for _, m := range report.Undelivered() {
					ids = append(ids, m.ID)
				}
				So(ids, ShouldResemble, []uint64{3, 4, 5, 6})
			})
		})

		Convey("a failed batch that is skipped", func() {
			engine, err := NewEngine(testConfig(3), WithDecisionMaker(Always(DecisionSkip)))
			So(err, ShouldBeNil)
			signer := newTestSigner(attempt{}, attempt{fail: true}, attempt{})

			report, err := engine.Dispatch(ctx, signer, testMessages(9))
			So(err, ShouldBeNil)

			So(outcomeNumbers(report), ShouldResemble, []int{1, 2, 3})
			So(report.Outcomes[1].Success, ShouldBeFalse)
			So(report.Outcomes[2].Success, ShouldBeTrue)
			So(failedIDs(report), ShouldResemble, []uint64{4, 5, 6})
			So(report.Halted, ShouldBeFalse)
			So(signer.broadcasts(), ShouldEqual, 3)
		})

		Convey("a run where nothing was delivered", func() {
			engine, err := NewEngine(testConfig(2))
			So(err, ShouldBeNil)
			signer := newTestSigner(attempt{fail: true})

			report, err := engine.Dispatch(ctx, signer, testMessages(4))
			So(err, ShouldBeNil)
			So(report.AnySucceeded(), ShouldBeFalse)
			So(report.Halted, ShouldBeTrue)
			So(signer.broadcasts(), ShouldEqual, 1)
		})
	})
}

func TestDispatchRetriesUntilSuccess(t *testing.T) {
	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("%d attempts", k), func(t *testing.T) {
			script := make([]attempt, k-1)
			for i := range script {
				script[i] = attempt{fail: i%2 == 0, lost: i%2 == 1}
			}
			signer := newTestSigner(script...)
			engine, err := NewEngine(testConfig(10), WithDecisionMaker(Always(DecisionRetry)))
			require.NoError(t, err)

			report, err := engine.Dispatch(context.Background(), signer, testMessages(10))
			require.NoError(t, err)
			require.Len(t, report.Outcomes, 1)
			assert.True(t, report.Outcomes[0].Success)
			assert.Equal(t, k, signer.broadcasts())
		})
	}
}

func TestDispatchDefaultDecision(t *testing.T) {
	cases := map[string]struct {
		decision     Decision
		wantOutcomes []int
		wantHalted   bool
	}{
		"stop when not configured": {
			decision:     DecisionStop,
			wantOutcomes: []int{1},
			wantHalted:   true,
		},
		"configured skip": {
			decision:     DecisionSkip,
			wantOutcomes: []int{1, 2, 3},
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf := testConfig(1)
			conf.DefaultDecision = tc.decision
			engine, err := NewEngine(conf)
			require.NoError(t, err)

			signer := newTestSigner(attempt{fail: true})
			report, err := engine.Dispatch(context.Background(), signer, testMessages(3))
			require.NoError(t, err)
			assert.Equal(t, tc.wantOutcomes, outcomeNumbers(report))
			assert.Equal(t, tc.wantHalted, report.Halted)
			assert.Equal(t, []uint64{1}, failedIDs(report))
		})
	}
}

func TestDispatchRetryGuard(t *testing.T) {
	cases := map[string]struct {
		guard       bool
		committed   map[string]bool
		lookupErr   error
		maker       DecisionMaker
		wantHash    string
		wantSent    int
		wantLookups []string
	}{
		"lost transaction was committed": {
			guard:       true,
			committed:   map[string]bool{"HASH1": true},
			maker:       Always(DecisionRetry),
			wantHash:    "HASH1",
			wantSent:    1,
			wantLookups: []string{"HASH1"},
		},
		"lost transaction was not committed": {
			guard:       true,
			maker:       Always(DecisionRetry),
			wantHash:    "HASH2",
			wantSent:    2,
			wantLookups: []string{"HASH1"},
		},
		"lookup failure asks again": {
			guard:       true,
			lookupErr:   errors.Wrap(errors.ErrNetwork, "node down"),
			maker:       Scripted(DecisionRetry, DecisionRetry),
			wantHash:    "HASH2",
			wantSent:    2,
			wantLookups: []string{"HASH1"},
		},
		"guard disabled": {
			committed: map[string]bool{"HASH1": true},
			maker:     Always(DecisionRetry),
			wantHash:  "HASH2",
			wantSent:  2,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf := testConfig(5)
			conf.GuardRetries = tc.guard
			engine, err := NewEngine(conf, WithDecisionMaker(tc.maker))
			require.NoError(t, err)

			signer := &lookupSigner{
				testSigner: newTestSigner(attempt{lost: true}),
				committed:  tc.committed,
				err:        tc.lookupErr,
			}
			report, err := engine.Dispatch(context.Background(), signer, testMessages(5))
			require.NoError(t, err)
			require.Len(t, report.Outcomes, 1)
			assert.True(t, report.Outcomes[0].Success)
			assert.Equal(t, tc.wantHash, report.Outcomes[0].TxHash)
			assert.Equal(t, tc.wantSent, signer.broadcasts())
			assert.Equal(t, tc.wantLookups, signer.lookups)
		})
	}
}

func TestDispatchCancelled(t *testing.T) {
	t.Run("before the first submission", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine, err := NewEngine(testConfig(2))
		require.NoError(t, err)
		signer := newTestSigner()

		report, err := engine.Dispatch(ctx, signer, testMessages(4))
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
		assert.True(t, report.Halted)
		assert.Len(t, report.Remaining, 2)
		assert.Equal(t, 0, signer.broadcasts())
	})

	t.Run("while waiting for a decision", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		maker := DecisionFunc(func(context.Context, FailedAttempt) (Decision, error) {
			cancel()
			return DecisionRetry, nil
		})
		engine, err := NewEngine(testConfig(2), WithDecisionMaker(maker))
		require.NoError(t, err)
		signer := newTestSigner(attempt{fail: true})

		report, err := engine.Dispatch(ctx, signer, testMessages(4))
		require.NoError(t, err)
		assert.Equal(t, []Outcome{{BatchNumber: 1}}, report.Outcomes)
		assert.True(t, report.Halted)
		assert.Equal(t, 1, signer.broadcasts())
	})
}

func TestDispatchSurvivesBrokenCollaborators(t *testing.T) {
	t.Run("decision maker panics", func(t *testing.T) {
		maker := DecisionFunc(func(context.Context, FailedAttempt) (Decision, error) {
			panic("ui crashed")
		})
		engine, err := NewEngine(testConfig(2), WithDecisionMaker(maker))
		require.NoError(t, err)
		signer := newTestSigner(attempt{fail: true})

		report, err := engine.Dispatch(context.Background(), signer, testMessages(4))
		require.NoError(t, err)
		assert.Equal(t, []Outcome{{BatchNumber: 1}}, report.Outcomes)
		assert.True(t, report.Halted)
		assert.Equal(t, 1, signer.broadcasts())
	})

	t.Run("signer returns no broadcast result", func(t *testing.T) {
		engine, err := NewEngine(testConfig(2), WithDecisionMaker(Always(DecisionSkip)))
		require.NoError(t, err)
		signer := newTestSigner(attempt{empty: true})

		report, err := engine.Dispatch(context.Background(), signer, testMessages(4))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, outcomeNumbers(report))
		assert.False(t, report.Outcomes[0].Success)
		assert.True(t, report.Outcomes[1].Success)
		assert.False(t, report.Halted)
	})
}

func TestDispatchInvalidInput(t *testing.T) {
	engine, err := NewEngine(testConfig(2))
	require.NoError(t, err)

	msgs := testMessages(3)
	msgs[2].ID = msgs[0].ID
	_, err = engine.Dispatch(context.Background(), newTestSigner(), msgs)
	require.True(t, errors.ErrInput.Is(err), "unexpected error: %v", err)

	msgs = testMessages(1)
	msgs[0].Value = nil
	_, err = engine.Dispatch(context.Background(), newTestSigner(), msgs)
	require.True(t, errors.ErrEmpty.Is(err), "unexpected error: %v", err)

	_, err = NewEngine(testConfig(0))
	require.True(t, errors.ErrInput.Is(err), "unexpected error: %v", err)
}

func TestDispatchEmpty(t *testing.T) {
	engine, err := NewEngine(testConfig(2))
	require.NoError(t, err)
	signer := newTestSigner()

	report, err := engine.Dispatch(context.Background(), signer, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.False(t, report.Halted)
	assert.False(t, report.AnySucceeded())
	assert.Equal(t, 0, signer.broadcasts())
}

// blockingSigner blocks every broadcast until released.
type blockingSigner struct {
	*testSigner
	started chan struct{}
	release chan struct{}
}

func (s *blockingSigner) Broadcast(ctx context.Context, tx *SignedTx) (*BroadcastResult, error) {
	s.started <- struct{}{}
	<-s.release
	return s.testSigner.Broadcast(ctx, tx)
}

func TestDispatchAccountInUse(t *testing.T) {
	engine, err := NewEngine(testConfig(5))
	require.NoError(t, err)

	signer := &blockingSigner{
		testSigner: newTestSigner(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		report, err := engine.Dispatch(context.Background(), signer, testMessages(5))
		assert.NoError(t, err)
		assert.True(t, report.AnySucceeded())
	}()

	<-signer.started
	_, err = engine.Dispatch(context.Background(), newTestSigner(), testMessages(5))
	assert.True(t, errors.ErrState.Is(err), "unexpected error: %v", err)

	close(signer.release)
	wg.Wait()

	// Once the first run is finished, the account can be used again.
	_, err = engine.Dispatch(context.Background(), newTestSigner(), testMessages(5))
	assert.NoError(t, err)
}

func TestDispatchConcurrentRuns(t *testing.T) {
	engine, err := NewEngine(testConfig(2), WithDecisionMaker(Always(DecisionSkip)))
	require.NoError(t, err)

	signers := make([]*testSigner, 8)
	reports := make([]*Report, len(signers))
	var g errgroup.Group
	for i := range signers {
		i := i
		signers[i] = newTestSigner(attempt{}, attempt{fail: i%2 == 0})
		signers[i].addr = fmt.Sprintf("cosmos1account%d", i)
		g.Go(func() error {
			r, err := engine.Dispatch(context.Background(), signers[i], testMessages(6))
			reports[i] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, r := range reports {
		assert.Equal(t, []int{1, 2, 3}, outcomeNumbers(r))
		assert.Equal(t, 3, signers[i].broadcasts())
		if i%2 == 0 {
			assert.Equal(t, []uint64{3, 4}, failedIDs(r))
		} else {
			assert.Empty(t, failedIDs(r))
		}
	}
}

func TestDispatchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	engine, err := NewEngine(testConfig(2),
		WithMetrics(metrics),
		WithDecisionMaker(Scripted(DecisionRetry, DecisionSkip)))
	require.NoError(t, err)

	signer := newTestSigner(attempt{fail: true}, attempt{fail: true})
	_, err = engine.Dispatch(context.Background(), signer, testMessages(4))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("skip")))

	// Registering the same metrics twice is not possible.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestEngineEstimate(t *testing.T) {
	engine, err := NewEngine(testConfig(3))
	require.NoError(t, err)

	est, err := engine.Estimate(context.Background(), newTestSigner(), testMessages(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(300000), est.Gas)
	assert.Equal(t, 4, est.Batches)
	assert.Equal(t, "60000uatom", est.Total.String())
	assert.Equal(t, "0.06", est.Display)

	_, err = engine.Estimate(context.Background(), newTestSigner(), nil)
	assert.True(t, errors.ErrEmpty.Is(err), "unexpected error: %v", err)
}
