package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDetached = errors.New("resource is not bound to a client")
	ErrUnsaved  = errors.New("resource has no id")
)

// Object carries the identity and audit metadata every resource shares.
type Object struct {
	ID         uuid.UUID
	CreatedBy  *uuid.UUID
	CreatedOn  *time.Time
	ModifiedBy *uuid.UUID
	ModifiedOn *time.Time
	DeletedBy  *uuid.UUID
	DeletedOn  *time.Time

	client *Client
}

func (o *Object) object() *Object { return o }

func (o *Object) objectFields() []Field {
	return []Field{
		{Name: "id", Kind: Scalar, Target: &o.ID, ReadOnly: true},
		{Name: "createdBy", Kind: Scalar, Target: &o.CreatedBy, ReadOnly: true},
		{Name: "createdOn", Kind: Date, Target: &o.CreatedOn, ReadOnly: true},
		{Name: "modifiedBy", Kind: Scalar, Target: &o.ModifiedBy, ReadOnly: true},
		{Name: "modifiedOn", Kind: Date, Target: &o.ModifiedOn, ReadOnly: true},
		{Name: "deletedBy", Kind: Scalar, Target: &o.DeletedBy, ReadOnly: true},
		{Name: "deletedOn", Kind: Date, Target: &o.DeletedOn, ReadOnly: true},
	}
}

// Client returns the client the resource was fetched or created with.
func (o *Object) Client() *Client { return o.client }

// Resource is implemented by every remote resource type.
type Resource interface {
	object() *Object
	fields() []Field
	basePath() string
}

type resourcePtr[R any] interface {
	*R
	Resource
}

func newResource[R any, P resourcePtr[R]](c *Client) P {
	var p P = new(R)
	p.object().client = c
	return p
}

// Location is the resource path relative to the API root.
func Location(r Resource) string {
	return r.basePath() + "/" + r.object().ID.String()
}

func allFields(r Resource) []Field {
	return append(r.object().objectFields(), r.fields()...)
}

func decode(r Resource, raw json.RawMessage) error {
	return decodeFields(raw, allFields(r))
}

func attached(r Resource) error {
	o := r.object()
	if o.client == nil {
		return ErrDetached
	}
	if o.ID == uuid.Nil {
		return ErrUnsaved
	}
	return nil
}

// Get fetches the resource with id.
func Get[R any, P resourcePtr[R]](ctx context.Context, c *Client, id uuid.UUID) (P, error) {
	p := newResource[R, P](c)
	p.object().ID = id
	if err := Refresh(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Refresh reloads r from its location.
func Refresh(ctx context.Context, r Resource) error {
	if err := attached(r); err != nil {
		return err
	}
	raw, err := r.object().client.do(ctx, http.MethodGet, Location(r), nil, nil)
	if err != nil {
		return err
	}
	return decodeResponse(r, raw)
}

// Create posts r to its collection and updates it from the response.
func Create(ctx context.Context, c *Client, r Resource) error {
	r.object().client = c
	raw, err := c.do(ctx, http.MethodPost, r.basePath(), nil, encodeFields(r.fields()))
	if err != nil {
		return err
	}
	return decodeResponse(r, raw)
}

// Update submits the writable fields of r and updates it from the response.
func Update(ctx context.Context, r Resource) error {
	if err := attached(r); err != nil {
		return err
	}
	raw, err := r.object().client.do(ctx, http.MethodPut, Location(r), nil, encodeFields(r.fields()))
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	return decode(r, raw)
}

// Delete removes r on the server. The local object is left as is.
func Delete(ctx context.Context, r Resource) error {
	if err := attached(r); err != nil {
		return err
	}
	_, err := r.object().client.do(ctx, http.MethodDelete, Location(r), nil, nil)
	return err
}

func decodeResponse(r Resource, raw json.RawMessage) error {
	if raw == nil {
		return fmt.Errorf("%s: empty response", r.basePath())
	}
	return decode(r, raw)
}

// Links returns the relative path of each related collection of r.
func Links(r Resource) map[string]string {
	out := make(map[string]string)
	for _, f := range r.fields() {
		if f.Kind == Link {
			out[f.Name] = Location(r) + "/" + f.WireKey()
		}
	}
	return out
}

// Locators returns the ids of the resources r references. Unset
// references are omitted.
func Locators(r Resource) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID)
	for _, f := range r.fields() {
		if f.Kind != Locator {
			continue
		}
		switch v := f.Target.(type) {
		case *uuid.UUID:
			if *v != uuid.Nil {
				out[f.Name] = *v
			}
		case **uuid.UUID:
			if *v != nil {
				out[f.Name] = **v
			}
		}
	}
	return out
}

// action issues one request to a path under the resource location. When
// into is set it is filled from the response body.
func action(ctx context.Context, r Resource, method, rel string, payload any, into Resource) error {
	if err := attached(r); err != nil {
		return err
	}
	c := r.object().client
	raw, err := c.do(ctx, method, Location(r)+"/"+rel, nil, payload)
	if err != nil || into == nil {
		return err
	}
	into.object().client = c
	return decodeResponse(into, raw)
}

// Page is one page of a list.
type Page[P any] struct {
	Total int
	Items []P
}

// List is a collection of resources at a fixed path.
type List[R any, P resourcePtr[R]] struct {
	client  *Client
	path    string
	apiName string
	query   url.Values
}

func newList[R any, P resourcePtr[R]](c *Client, path, apiName string) *List[R, P] {
	return &List[R, P]{client: c, path: path, apiName: apiName, query: url.Values{}}
}

// Path is the collection path relative to the API root.
func (l *List[R, P]) Path() string { return l.path }

// Filter returns a copy of the list restricted by a query parameter.
func (l *List[R, P]) Filter(key, value string) *List[R, P] {
	cp := *l
	cp.query = url.Values{}
	for k, v := range l.query {
		cp.query[k] = append([]string(nil), v...)
	}
	cp.query.Set(key, value)
	return &cp
}

// IncludeDeleted returns a copy of the list that also yields deleted
// resources.
func (l *List[R, P]) IncludeDeleted() *List[R, P] {
	return l.Filter("deleted", "true")
}

// List fetches every entry in one request.
func (l *List[R, P]) List(ctx context.Context) ([]P, error) {
	page, err := l.fetch(ctx, l.query)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Page fetches one page; index starts at 1.
func (l *List[R, P]) Page(ctx context.Context, size, index int) (*Page[P], error) {
	q := url.Values{}
	for k, v := range l.query {
		q[k] = v
	}
	q.Set("pagesize", strconv.Itoa(size))
	q.Set("pageindex", strconv.Itoa(index))
	return l.fetch(ctx, q)
}

func (l *List[R, P]) fetch(ctx context.Context, q url.Values) (*Page[P], error) {
	raw, err := l.client.do(ctx, http.MethodGet, l.path, q, nil)
	if err != nil {
		return nil, err
	}
	page := &Page[P]{Items: []P{}}
	if raw == nil {
		return page, nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	if v, ok := body["totalResults"]; ok {
		if err := json.Unmarshal(v, &page.Total); err != nil {
			return nil, fmt.Errorf("decode %s totalResults: %w", l.path, err)
		}
	}
	var entries []json.RawMessage
	if v, ok := body[l.apiName]; ok {
		if err := json.Unmarshal(v, &entries); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", l.path, l.apiName, err)
		}
	}
	for _, e := range entries {
		p := newResource[R, P](l.client)
		if err := decode(p, e); err != nil {
			return nil, fmt.Errorf("decode %s entry: %w", l.path, err)
		}
		page.Items = append(page.Items, p)
	}
	return page, nil
}
