package client

import (
	"net/url"
	"strconv"
)

// ListOptions selects a page of a list endpoint. A nil value asks for
// the server's default page.
type ListOptions struct {
	// Limit caps the number of returned items.
	Limit int
	// After and Before are cursor ids for forward and backward
	// pagination.
	After  string
	Before string
}

// query renders the options as a URL query suffix, empty when nothing is
// set.
func (o *ListOptions) query() string {
	if o == nil {
		return ""
	}
	v := url.Values{}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.After != "" {
		v.Set("after", o.After)
	}
	if o.Before != "" {
		v.Set("before", o.Before)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
