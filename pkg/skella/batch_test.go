package skella_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

// blockingModel fetches until its context ends.
type blockingModel struct {
	MockModel
}

func (m *blockingModel) Fetch(ctx context.Context) error {
	<-ctx.Done()

	return ctx.Err()
}

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	fetched := &MockModel{}
	fetched.On("Fetch", mock.Anything).Return(nil)

	saved := &MockModel{}
	saved.On("Save", mock.Anything).Return(nil)

	failed := &MockModel{}
	failed.On("Destroy", mock.Anything).Return(errPageFailed)

	var callbacks atomic.Int32

	operations := skella.NewBatchBuilder().
		AddFetch("get-1", fetched).
		AddSave("save-1", saved).
		AddDestroy("delete-1", failed).
		Build()

	for i := range operations {
		operations[i].Callback = func(*skella.BatchResult) { callbacks.Add(1) }
	}

	operations = append(operations,
		skella.BatchOperation{ID: "bogus", Type: "rename", Model: &MockModel{}},
		skella.BatchOperation{ID: "empty", Type: skella.BatchFetch},
	)

	executor := skella.NewBatchExecutor(2)
	executor.SetTimeout(time.Second)

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "get-1", results[0].ID)
	assert.True(t, results[0].Success)
	assert.Equal(t, skella.BatchSave, results[1].Type)
	assert.True(t, results[1].Success)

	assert.False(t, results[2].Success)
	require.ErrorIs(t, results[2].Error, errPageFailed)
	require.ErrorIs(t, results[3].Error, skella.ErrUnsupportedOperation)
	require.ErrorIs(t, results[4].Error, skella.ErrModelRequired)

	assert.Equal(t, int32(3), callbacks.Load())

	fetched.AssertExpectations(t)
	saved.AssertExpectations(t)
	failed.AssertExpectations(t)
}

func TestBatchExecutor_Concurrency(t *testing.T) {
	t.Parallel()

	var (
		running atomic.Int32
		peak    atomic.Int32
	)

	builder := skella.NewBatchBuilder()

	for i := 0; i < 6; i++ {
		model := &MockModel{}
		model.On("Fetch", mock.Anything).Run(func(mock.Arguments) {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}).Return(nil)

		builder.AddFetch("", model)
	}

	results, err := skella.NewBatchExecutor(2).Execute(context.Background(), builder.Build())
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatchExecutor_Timeout(t *testing.T) {
	t.Parallel()

	slow := &blockingModel{}

	executor := skella.NewBatchExecutor(0)
	executor.SetTimeout(5 * time.Millisecond)

	results, err := executor.Execute(context.Background(), skella.NewBatchBuilder().AddFetch("slow", slow).Build())
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}
