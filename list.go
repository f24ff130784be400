package espalier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/espalierhq/espalier/internal/invoke"
	"github.com/espalierhq/espalier/pkg/domain"
)

// Kwarg keys threaded through list nodes. They are ordinary kwargs, visible
// to selection handlers and to the wrapped node.
const (
	// KeyListPage holds the zero-based page index of a list node.
	KeyListPage = "list_page_index"
	// KeyListChoices holds the items visible on the current page.
	KeyListChoices = "list_choices"
	// KeyListSelection holds the chosen item, set by SelectNode.
	KeyListSelection = "list_selection"
)

// listState is the slice of the kwarg bag a list node reads.
type listState struct {
	Page    int      `mapstructure:"list_page_index"`
	Choices []string `mapstructure:"list_choices"`
}

// ListItems produces the backing items of a list node. It runs on every
// visit, so the list may change between pages.
type ListItems func(actor domain.Actor) ([]string, error)

// StaticItems wraps a fixed slice as a ListItems source.
func StaticItems(items []string) ListItems {
	return func(domain.Actor) ([]string, error) { return items, nil }
}

// SelectFunc handles a chosen list item. selection is one element of choices,
// the items visible on the page the actor selected from. Returning a zero
// Target re-runs the list node.
type SelectFunc func(actor domain.Actor, selection string, choices []string, kw domain.Map) (domain.Target, error)

// SelectNode returns a selection handler that forwards to the named node,
// passing the chosen item along under KeyListSelection.
func SelectNode(node string) SelectFunc {
	return func(_ domain.Actor, selection string, _ []string, kw domain.Map) (domain.Target, error) {
		next := kw.Clone()
		next[KeyListSelection] = selection
		return domain.Target{Node: node, Kwargs: next}, nil
	}
}

// ListNode wraps a node function into a paged list node. The items are
// sliced into pages of pagesize; each visible item becomes a numbered option
// routing through sel, and "current", "previous" and "next" controls re-run
// the node with an updated page index. Options returned by the wrapped node
// are appended after the generated ones, their callables re-seeded so the
// visible page is available under KeyListChoices.
//
// inner supplies the node body and any extra options. It may be written in
// any of the node shapes the engine accepts, or be nil for a bare list. sel
// may be nil, in which case the wrapped node must provide its own way
// onward.
func ListNode(items ListItems, sel SelectFunc, pagesize int, inner any) (domain.Node, error) {
	if items == nil {
		return nil, domain.Configf("list node requires an item source")
	}
	if pagesize <= 0 {
		pagesize = 10
	}
	var innerNode domain.Node
	if inner != nil {
		adapted, err := invoke.Node(inner)
		if err != nil {
			return nil, err
		}
		innerNode = adapted
	}
	parser := selectParser(sel)

	return func(actor domain.Actor, raw string, kw domain.Map) (domain.Output, error) {
		list, err := items(actor)
		if err != nil {
			return domain.Output{}, err
		}

		var state listState
		if err := kw.Decode(&state); err != nil {
			return domain.Output{}, err
		}

		var (
			npages    int
			pageIndex int
			page      []string
		)
		if len(list) > 0 {
			npages = (len(list) + pagesize - 1) / pagesize
			pageIndex = max(0, min(npages-1, state.Page))
			lo := pageIndex * pagesize
			page = list[lo:min(lo+pagesize, len(list))]
		}

		options := make([]domain.Option, 0, len(page)+3)
		for _, item := range page {
			options = append(options, domain.Option{
				Desc: item,
				Goto: domain.CallKw(parser, domain.Map{KeyListChoices: page}),
			})
		}
		if npages > 1 {
			options = append(options, domain.Option{
				Keys: []string{"current", "c"},
				Desc: fmt.Sprintf("(%d/%d)", pageIndex+1, npages),
				Goto: domain.CallKw(stay, domain.Map{KeyListPage: pageIndex}),
			})
			if pageIndex > 0 {
				options = append(options, domain.Option{
					Keys: []string{"previous page", "p"},
					Goto: domain.CallKw(stay, domain.Map{KeyListPage: pageIndex - 1}),
				})
			}
			if pageIndex < npages-1 {
				options = append(options, domain.Option{
					Keys: []string{"next page", "n"},
					Goto: domain.CallKw(stay, domain.Map{KeyListPage: pageIndex + 1}),
				})
			}
		}

		var out domain.Output
		if innerNode != nil {
			out, err = innerNode(actor, raw, kw)
			if err != nil {
				return domain.Output{}, err
			}
			for _, opt := range out.Options {
				opt.Goto = withChoices(opt.Goto, page)
				opt.Exec = withChoices(opt.Exec, page)
				options = append(options, opt)
			}
		}
		out.Options = options
		return out, nil
	}, nil
}

// stay re-runs the current node; pairing it with a page-index kwarg is what
// turns the paging controls into transitions.
func stay(domain.Actor, string, domain.Map) (domain.Target, error) {
	return domain.Target{}, nil
}

// withChoices re-seeds a callable directive so the visible page reaches it.
// Name-based directives pass through untouched.
func withChoices(d domain.Directive, page []string) domain.Directive {
	if d.Func() == nil {
		return d
	}
	kwargs := d.Kwargs().Clone()
	kwargs[KeyListChoices] = page
	return domain.CallKw(d.Func(), kwargs)
}

// selectParser maps the numbered item options back onto the page. The raw
// input is the option number the actor typed.
func selectParser(sel SelectFunc) domain.GotoFunc {
	return func(actor domain.Actor, raw string, kw domain.Map) (domain.Target, error) {
		var state listState
		if err := kw.Decode(&state); err != nil {
			return domain.Target{}, err
		}
		index, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || index < 1 || index > len(state.Choices) {
			return domain.Target{}, domain.Abort("Invalid choice.")
		}
		if sel == nil {
			return domain.Target{}, nil
		}
		return sel(actor, state.Choices[index-1], state.Choices, kw)
	}
}
