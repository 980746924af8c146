package action

import (
	"fmt"
)

// URL points at a templated address such as "/posts/{id}/preview".
type URL struct {
	Base
	Template string
}

// NewURL returns a GET action on a URL template.
func NewURL(key, label, template string) *URL {
	return &URL{Base: newBase(KindURL, key, label, MethodGet), Template: template}
}

// Target implements Action.
func (u *URL) Target(item any, _ Context) (string, error) {
	return Expand(u.Template, item)
}

// TargetFunc computes an action's URL from the item.
type TargetFunc func(item any, ctx Context) (string, error)

// Row is a row action whose target is computed by a function.
type Row struct {
	Base
	Href TargetFunc
}

// NewRow returns a row action.
func NewRow(key, label string, href TargetFunc) *Row {
	return &Row{Base: newBase(KindRow, key, label, MethodGet), Href: href}
}

// Target implements Action.
func (r *Row) Target(item any, ctx Context) (string, error) {
	if r.Href == nil {
		return "", nil
	}
	return r.Href(item, ctx)
}

// Header is a table-level action, such as "New post". It resolves with no
// item: either a named route with literal parameters or a literal URL.
type Header struct {
	Base
	Route  string
	Params map[string]any
	Href   string
}

// NewHeader returns a header action on a route.
func NewHeader(key, label, route string) *Header {
	return &Header{Base: newBase(KindHeader, key, label, MethodGet), Route: route}
}

// Target implements Action.
func (h *Header) Target(_ any, ctx Context) (string, error) {
	if h.Route != "" {
		return routeURL(ctx, h.Route, h.Params)
	}
	return h.Href, nil
}

// HandlerFunc runs an action for one item.
type HandlerFunc func(item any, ctx Context) error

// Callback runs server-side code. The client posts to Endpoint, which may
// be templated from the item.
type Callback struct {
	Base
	Endpoint string
	Handler  HandlerFunc
}

// NewCallback returns a POST callback action.
func NewCallback(key, label string, handler HandlerFunc) *Callback {
	return &Callback{Base: newBase(KindCallback, key, label, MethodPost), Handler: handler}
}

// Target implements Action.
func (c *Callback) Target(item any, _ Context) (string, error) {
	if c.Endpoint == "" {
		return "", nil
	}
	return Expand(c.Endpoint, item)
}

// Execute runs the handler for item after checking visibility and
// enablement.
func (c *Callback) Execute(item any, ctx Context) (err error) {
	if c.Handler == nil {
		return fmt.Errorf("%s: %w", c.Key, ErrNoHandler)
	}
	if err := guard(c, item, ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", c.Key, r)
		}
	}()
	return c.Handler(item, ctx)
}

// Modal opens its target in a dialog or slide-over panel. It shares the
// visibility and enablement rules of every other action.
type Modal struct {
	Base
	Template string
}

// NewModal returns an action opening template in a medium modal titled
// with the label.
func NewModal(key, label, template string) *Modal {
	b := newBase(KindModal, key, label, MethodGet)
	b.Mode = ModeModal
	b.Modal = &ModalConfig{Size: "md", Title: label}
	return &Modal{Base: b, Template: template}
}

// SlideOver switches the modal to a slide-over panel.
func (m *Modal) SlideOver() *Modal {
	m.Mode = ModeSlideover
	return m
}

// Target implements Action.
func (m *Modal) Target(item any, _ Context) (string, error) {
	if m.Template == "" {
		return "", nil
	}
	return Expand(m.Template, item)
}
