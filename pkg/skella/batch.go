package skella

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// BatchOperationType names what a batch operation does to its model.
type BatchOperationType string

// Batch operation types.
const (
	BatchFetch   BatchOperationType = "fetch"
	BatchSave    BatchOperationType = "save"
	BatchDestroy BatchOperationType = "destroy"
)

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	ID       string
	Type     BatchOperationType
	Model    Model
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Type     BatchOperationType
	Success  bool
	Model    Model
	Error    error
	Duration time.Duration
}

// BatchExecutor runs model operations concurrently.
type BatchExecutor struct {
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}

	return &BatchExecutor{
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the timeout for each operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are in the order of operations;
// failures are reported per result, never as the returned error.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID, Type: operation.Type, Model: operation.Model}

	if operation.Model == nil {
		result.Error = ErrModelRequired

		return result
	}

	var err error

	switch operation.Type {
	case BatchFetch:
		err = operation.Model.Fetch(ctx)
	case BatchSave:
		err = operation.Model.Save(ctx)
	case BatchDestroy:
		err = operation.Model.Destroy(ctx)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperation, operation.Type)
	}

	result.Error = err
	result.Success = err == nil

	return result
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{}
}

// AddFetch adds a fetch operation.
func (b *BatchBuilder) AddFetch(id string, model Model) *BatchBuilder {
	return b.add(id, BatchFetch, model)
}

// AddSave adds a save operation.
func (b *BatchBuilder) AddSave(id string, model Model) *BatchBuilder {
	return b.add(id, BatchSave, model)
}

// AddDestroy adds a destroy operation.
func (b *BatchBuilder) AddDestroy(id string, model Model) *BatchBuilder {
	return b.add(id, BatchDestroy, model)
}

func (b *BatchBuilder) add(id string, kind BatchOperationType, model Model) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{ID: id, Type: kind, Model: model})

	return b
}

// Build returns the operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
