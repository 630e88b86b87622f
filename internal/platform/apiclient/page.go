package apiclient

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// Page is a slice of a server-side collection.
type Page[T any] struct {
	Content       []T
	TotalElements int64
	TotalPages    int
	Number        int
	Size          int
}

type pageMeta struct {
	Size          *int   `json:"size"`
	Number        *int   `json:"number"`
	PageNumber    *int   `json:"pageNumber"`
	PageSize      *int   `json:"pageSize"`
	TotalElements *int64 `json:"totalElements"`
	TotalPages    *int   `json:"totalPages"`
}

type pageWire[T any] struct {
	Content []T `json:"content"`
	pageMeta
	Page     *pageMeta       `json:"page"`
	Pageable json.RawMessage `json:"pageable"`
}

// UnmarshalJSON accepts flat Spring pages as well as the nested "page" and
// "pageable" metadata shapes.
func (p *Page[T]) UnmarshalJSON(raw []byte) error {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Content: items, TotalElements: int64(len(items)), TotalPages: 1, Size: len(items)}
		return nil
	}
	var wire pageWire[T]
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	p.Content = wire.Content
	if p.Content == nil {
		p.Content = []T{}
	}
	// Unpaged results serialize pageable as a bare string.
	var pageable *pageMeta
	if len(wire.Pageable) > 0 && wire.Pageable[0] == '{' {
		pageable = &pageMeta{}
		if err := json.Unmarshal(wire.Pageable, pageable); err != nil {
			pageable = nil
		}
	}
	for _, meta := range []*pageMeta{pageable, wire.Page, &wire.pageMeta} {
		if meta == nil {
			continue
		}
		if meta.TotalElements != nil {
			p.TotalElements = *meta.TotalElements
		}
		if meta.TotalPages != nil {
			p.TotalPages = *meta.TotalPages
		}
		if meta.Number != nil {
			p.Number = *meta.Number
		} else if meta.PageNumber != nil {
			p.Number = *meta.PageNumber
		}
		if meta.Size != nil {
			p.Size = *meta.Size
		} else if meta.PageSize != nil {
			p.Size = *meta.PageSize
		}
	}
	if p.TotalElements == 0 && len(p.Content) > 0 {
		p.TotalElements = int64(len(p.Content))
	}
	return nil
}

func (p Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

func (p Page[T]) HasPrev() bool {
	return p.Number > 0
}

// MapPage converts the content of a page, keeping its metadata.
func MapPage[W, V any](in Page[W], fn func(W) V) Page[V] {
	out := Page[V]{
		Content:       make([]V, 0, len(in.Content)),
		TotalElements: in.TotalElements,
		TotalPages:    in.TotalPages,
		Number:        in.Number,
		Size:          in.Size,
	}
	for _, item := range in.Content {
		out.Content = append(out.Content, fn(item))
	}
	return out
}

// PageParams are zero-based page requests; zero values are omitted.
type PageParams struct {
	Page int
	Size int
	// Sort is passed through as Spring's "property,direction".
	Sort string
}

func (p PageParams) Apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}
