package history

import (
	"github.com/m-mizutani/pollen/pkg/model"
)

// ListOptions narrows the records returned by List
type ListOptions struct {
	Kind   model.Kind
	Offset int
	Limit  int
}

// List returns a newest-first window of h
func List(h model.History, opts ListOptions) model.History {
	if opts.Kind != "" {
		h = h.Filter(opts.Kind)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(h) {
			return model.History{}
		}
		h = h[opts.Offset:]
	}

	if opts.Limit > 0 && opts.Limit < len(h) {
		h = h[:opts.Limit]
	}

	if h == nil {
		return model.History{}
	}
	return h
}
