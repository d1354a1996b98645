package skella

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// PaginationOptions bound a multi-page walk of a collection.
type PaginationOptions struct {
	// PageSize is the limit sent with each request. Zero leaves it to the server.
	PageSize int
	// MaxPages stops the walk after this many pages. Zero means no bound.
	MaxPages int
	// Query carries extra parameters sent with every page.
	Query *ListOptions
}

// DefaultPaginationOptions returns default pagination options.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{PageSize: constants.DefaultPageSize}
}

// PageResult is one page delivered by StreamPages.
type PageResult struct {
	Offset int
	Items  []Model
	Err    error
}

// PaginationIterator walks a collection one member at a time, fetching pages
// on demand. The collection is refetched for every page.
type PaginationIterator struct {
	ctx        context.Context //nolint:containedctx // iterator outlives a single call
	collection Collection
	options    *PaginationOptions

	buffer []Model
	index  int
	offset int
	pages  int
	done   bool
	err    error
}

// NewPaginationIterator creates an iterator over collection. A nil options uses the defaults.
func NewPaginationIterator(ctx context.Context, collection Collection, options *PaginationOptions) *PaginationIterator {
	if options == nil {
		options = DefaultPaginationOptions()
	}

	return &PaginationIterator{ctx: ctx, collection: collection, options: options}
}

// HasNext reports whether Next will return a member or an error. It fetches
// the next page when the current one is used up.
func (it *PaginationIterator) HasNext() bool {
	if it.index < len(it.buffer) || it.err != nil {
		return true
	}

	if it.done {
		return false
	}

	it.fetch()

	return it.index < len(it.buffer) || it.err != nil
}

// Next returns the next member.
func (it *PaginationIterator) Next() (Model, error) {
	if !it.HasNext() {
		return nil, ErrNoMoreItems
	}

	if it.err != nil {
		err := it.err
		it.err = nil
		it.done = true

		return nil, err
	}

	model := it.buffer[it.index]
	it.index++

	return model, nil
}

// All drains the iterator.
func (it *PaginationIterator) All() ([]Model, error) {
	var models []Model

	for it.HasNext() {
		model, err := it.Next()
		if err != nil {
			return models, err
		}

		models = append(models, model)
	}

	return models, nil
}

// ForEach calls fn for every member until fn or a fetch fails.
func (it *PaginationIterator) ForEach(fn func(Model) error) error {
	for it.HasNext() {
		model, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(model)
		if err != nil {
			return err
		}
	}

	return nil
}

func (it *PaginationIterator) fetch() {
	items, last, err := fetchPage(it.ctx, it.collection, it.options, it.offset)
	if err != nil {
		it.err = err

		return
	}

	it.pages++
	it.buffer = items
	it.index = 0
	it.offset += len(items)

	if last || (it.options.MaxPages > 0 && it.pages >= it.options.MaxPages) {
		it.done = true
	}
}

// fetchPage fetches the page at offset. last is set when the page is empty,
// shorter than the limit, or no limit is known at all.
func fetchPage(ctx context.Context, collection Collection, options *PaginationOptions, offset int) ([]Model, bool, error) {
	listOptions := NewListOptions(offset, options.PageSize)
	if options.Query != nil {
		listOptions.Extra = options.Query.Extra
	}

	err := collection.Fetch(ctx, listOptions)
	if err != nil {
		return nil, true, fmt.Errorf("fetching page at offset %d: %w", offset, err)
	}

	items := collection.Models()

	limit := collection.Limit()
	if limit == 0 {
		limit = options.PageSize
	}

	last := len(items) == 0 || limit == 0 || len(items) < limit

	return items, last, nil
}

// FetchAllPages walks every page of collection and returns all members.
func FetchAllPages(ctx context.Context, collection Collection, options *PaginationOptions) ([]Model, error) {
	return NewPaginationIterator(ctx, collection, options).All()
}

// StreamPages fetches pages in a goroutine and delivers them on the returned
// channel, which is closed after the last page or the first error.
func StreamPages(ctx context.Context, collection Collection, options *PaginationOptions) <-chan PageResult {
	if options == nil {
		options = DefaultPaginationOptions()
	}

	results := make(chan PageResult)

	go func() {
		defer close(results)

		offset := 0

		for page := 1; options.MaxPages == 0 || page <= options.MaxPages; page++ {
			items, last, err := fetchPage(ctx, collection, options, offset)

			select {
			case results <- PageResult{Offset: offset, Items: items, Err: err}:
			case <-ctx.Done():
				return
			}

			if err != nil || last {
				return
			}

			offset += len(items)
		}
	}()

	return results
}
