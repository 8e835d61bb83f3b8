package client

import (
	"context"
	"encoding/json"
	"net/url"
)

// Object is a generic API resource. The well-known fields cover the common
// cases (resource hrefs, task pointers, names); everything else is available
// through Fields.
type Object struct {
	Href string `json:"pulp_href,omitempty"`
	Task string `json:"task,omitempty"`
	Name string `json:"name,omitempty"`

	Fields map[string]interface{} `json:"-"`
}

func (o *Object) UnmarshalJSON(data []byte) error {
	type plain Object
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Fields = fields
	*o = Object(p)
	return nil
}

// String returns the named field as a string, or "" if absent or not a string.
func (o *Object) String(key string) string {
	if s, ok := o.Fields[key].(string); ok {
		return s
	}
	return ""
}

// ObjectList is a paginated collection response.
type ObjectList struct {
	Count   int      `json:"count"`
	Results []Object `json:"results"`
}

// ObjectsAPI exposes create/read/delete/list for one resource collection.
// It is the unit the cleanup tracker works in terms of: deleting through the
// same API that created an object.
type ObjectsAPI struct {
	c          *PulpClient
	createPath string
}

func (c *PulpClient) Objects(createPath string) *ObjectsAPI {
	return &ObjectsAPI{c: c, createPath: createPath}
}

// Convenience accessors for the collections the suite uses.
func (c *PulpClient) Repositories() *ObjectsAPI  { return c.Objects(RepositoriesPath) }
func (c *PulpClient) Remotes() *ObjectsAPI       { return c.Objects(RemotesPath) }
func (c *PulpClient) Publications() *ObjectsAPI  { return c.Objects(PublicationsPath) }
func (c *PulpClient) Distributions() *ObjectsAPI { return c.Objects(DistributionsPath) }

func (a *ObjectsAPI) Create(ctx context.Context, body interface{}) (*Object, error) {
	var obj Object
	if err := a.c.Post(ctx, a.createPath, body, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (a *ObjectsAPI) Read(ctx context.Context, href string) (*Object, error) {
	var obj Object
	if err := a.c.Get(ctx, href, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (a *ObjectsAPI) Delete(ctx context.Context, href string) (*Object, error) {
	return a.c.Delete(ctx, href)
}

func (a *ObjectsAPI) List(ctx context.Context, params url.Values) (*ObjectList, error) {
	var list ObjectList
	if err := a.c.GetWithParams(ctx, a.createPath, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
