// Package pagination computes the page links shown under paged result sets.
package pagination

import (
	"net/url"
	"strconv"
)

// MobileBreakpoint is the viewport width below which the compact window is used.
const MobileBreakpoint = 768

const desktopSpan = 4

// Window is the derived set of page controls for one render.
type Window struct {
	Current     int   `json:"current"`
	Total       int   `json:"total"`
	Mobile      bool  `json:"mobile"`
	Pages       []int `json:"pages"`
	ShowFirst   bool  `json:"show_first"`
	ShowLast    bool  `json:"show_last"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}

func IsMobile(width int) bool {
	return width < MobileBreakpoint
}

// Compute returns the window around current. Inputs are clamped so that
// total >= 1 and 1 <= current <= total.
func Compute(current, total int, mobile bool) Window {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	w := Window{
		Current:     current,
		Total:       total,
		Mobile:      mobile,
		HasPrevious: current > 1,
		HasNext:     current < total,
	}

	if mobile {
		if current > 1 {
			w.Pages = append(w.Pages, current-1)
		}
		w.Pages = append(w.Pages, current)
		if current < total {
			w.Pages = append(w.Pages, current+1)
		}
		w.ShowFirst = current > 2
		w.ShowLast = current < total-1 && total > 3
		return w
	}

	start := max(1, current-2)
	end := min(total, start+desktopSpan)
	if end-start < desktopSpan && start > 1 {
		start = max(1, end-desktopSpan)
	}
	w.Pages = make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		w.Pages = append(w.Pages, p)
	}
	w.ShowFirst = start > 1
	w.ShowLast = end < total
	return w
}

type LinkKind string

const (
	LinkPrevious LinkKind = "previous"
	LinkFirst    LinkKind = "first"
	LinkEllipsis LinkKind = "ellipsis"
	LinkPage     LinkKind = "page"
	LinkLast     LinkKind = "last"
	LinkNext     LinkKind = "next"
)

type Link struct {
	Kind   LinkKind `json:"kind"`
	Page   int      `json:"page,omitempty"`
	Href   string   `json:"href,omitempty"`
	Active bool     `json:"active,omitempty"`
}

// Links renders the window as ordered controls. Each href keeps every query
// parameter and replaces only page.
func Links(w Window, query url.Values) []Link {
	out := make([]Link, 0, len(w.Pages)+6)
	if w.HasPrevious {
		out = append(out, Link{Kind: LinkPrevious, Page: w.Current - 1, Href: PageURL(query, w.Current-1)})
	}
	if w.ShowFirst {
		out = append(out,
			Link{Kind: LinkFirst, Page: 1, Href: PageURL(query, 1)},
			Link{Kind: LinkEllipsis},
		)
	}
	for _, p := range w.Pages {
		out = append(out, Link{Kind: LinkPage, Page: p, Href: PageURL(query, p), Active: p == w.Current})
	}
	if w.ShowLast {
		out = append(out,
			Link{Kind: LinkEllipsis},
			Link{Kind: LinkLast, Page: w.Total, Href: PageURL(query, w.Total)},
		)
	}
	if w.HasNext {
		out = append(out, Link{Kind: LinkNext, Page: w.Current + 1, Href: PageURL(query, w.Current+1)})
	}
	return out
}

// PageURL returns "?<query>" with page set to p.
func PageURL(query url.Values, p int) string {
	params := make(url.Values, len(query)+1)
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}
	params.Set("page", strconv.Itoa(p))
	return "?" + params.Encode()
}
