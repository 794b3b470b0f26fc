package opcall

import "context"

// Pager declares how an operation pages: how items and the continuation
// token are read out of an output, and how the next input is rebuilt from
// the previous one. Generated code supplies one per paginated operation.
type Pager[I, O, Item any] struct {
	// Items extracts the current page's items from an output.
	Items func(O) []Item

	// Token extracts the continuation token; "" means no further pages.
	Token func(O) string

	// NextInput rebuilds the input for the next page from the previous
	// input, the token, and an optional page-size override.
	NextInput func(prev I, token string, pageSize *int) I
}

// Page is one page of a paginated call plus the capability to resume.
// HasNext is defined purely by the extracted token being non-empty.
type Page[I, O, Item any] struct {
	Items  []Item
	Output O

	token  string
	input  I
	pager  Pager[I, O, Item]
	resume func(ctx context.Context, input I) (O, error)
}

// HasNext reports whether a continuation token was extracted from this
// page's output.
func (p *Page[I, O, Item]) HasNext() bool { return p.token != "" }

// Next fetches the following page. pageSize optionally overrides the page
// size for that call. Calling Next on a terminal page is a no-op returning
// an equivalent terminal page, not an error.
func (p *Page[I, O, Item]) Next(ctx context.Context, pageSize *int) (*Page[I, O, Item], error) {
	if p.token == "" {
		return p, nil
	}
	next := p.pager.NextInput(p.input, p.token, pageSize)
	return fetchPage(ctx, p.resume, p.pager, next)
}

// RunPaginated executes the first page of a cursor-paginated call. The
// returned page's resume capability closes over the runner, the operation,
// and the per-call options, so paging needs no state beyond the current
// page.
func RunPaginated[I, O, Item any](ctx context.Context, r *Runner, op *Operation[I, O], pager Pager[I, O, Item], input I, opts ...CallOption) (*Page[I, O, Item], error) {
	resume := func(ctx context.Context, in I) (O, error) {
		return Run(ctx, r, op, in, opts...)
	}
	return fetchPage(ctx, resume, pager, input)
}

func fetchPage[I, O, Item any](ctx context.Context, resume func(context.Context, I) (O, error), pager Pager[I, O, Item], input I) (*Page[I, O, Item], error) {
	out, err := resume(ctx, input)
	if err != nil {
		return nil, err
	}
	page := &Page[I, O, Item]{
		Output: out,
		input:  input,
		pager:  pager,
		resume: resume,
	}
	if pager.Items != nil {
		page.Items = pager.Items(out)
	}
	if pager.Token != nil {
		page.token = pager.Token(out)
	}
	return page, nil
}
