package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// Collections lists the classes defined in the schema
func (c *Client) Collections(ctx context.Context) ([]models.Collection, error) {
	schema, err := c.w.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	out := make([]models.Collection, 0, len(schema.Classes))
	for _, cl := range schema.Classes {
		if cl == nil {
			continue
		}
		out = append(out, models.Collection{
			Name:        cl.Class,
			MultiTenant: cl.MultiTenancyConfig != nil && cl.MultiTenancyConfig.Enabled,
		})
	}
	return out, nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.w.Schema().ClassDeleter().WithClassName(name).Do(ctx); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// Tenants lists the tenants of a multi-tenant collection
func (c *Client) Tenants(ctx context.Context, collection string) ([]models.Tenant, error) {
	raw, err := c.w.Schema().TenantsGetter().WithClassName(collection).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tenants of %s: %w", collection, err)
	}
	out := make([]models.Tenant, 0, len(raw))
	for _, t := range raw {
		out = append(out, models.Tenant{Name: t.Name, Status: t.ActivityStatus})
	}
	return out, nil
}

// ListObjects returns one page after cursor. An empty cursor starts at the
// beginning of the collection.
func (c *Client) ListObjects(ctx context.Context, collection, cursor string, limit int, tenant string) (models.Page, error) {
	q := url.Values{}
	q.Set("class", collection)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("after", cursor)
	}
	if tenant != "" {
		q.Set("tenant", tenant)
	}

	var resp struct {
		Objects []models.Object `json:"objects"`
	}
	if err := c.getJSON(ctx, "/v1/objects", q, &resp); err != nil {
		return models.Page{}, fmt.Errorf("list objects of %s: %w", collection, err)
	}

	page := models.Page{Objects: resp.Objects}
	if n := len(resp.Objects); n > 0 {
		page.NextCursor = resp.Objects[n-1].ID
	}
	return page, nil
}

// collection names end up as GraphQL type names
var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

func checkName(collection string) error {
	if !graphQLName.MatchString(collection) {
		return fmt.Errorf("%q is not a valid collection name", collection)
	}
	return nil
}

// rows pulls data[root][collection] out of a GraphQL response
func rows(resp *wmodels.GraphQLResponse, root, collection string) ([]map[string]any, error) {
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, fmt.Errorf("graphql: %s", strings.Join(msgs, ", "))
	}
	byClass, ok := resp.Data[root].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("graphql: missing %s in response", root)
	}
	list, _ := byClass[collection].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Count returns the total number of objects in the collection (and tenant)
func (c *Client) Count(ctx context.Context, collection, tenant string) (int64, error) {
	if err := checkName(collection); err != nil {
		return 0, err
	}
	agg := c.w.GraphQL().Aggregate().
		WithClassName(collection).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if tenant != "" {
		agg = agg.WithTenant(tenant)
	}

	resp, err := agg.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count objects of %s: %w", collection, err)
	}
	list, err := rows(resp, "Aggregate", collection)
	if err != nil {
		return 0, fmt.Errorf("count objects of %s: %w", collection, err)
	}
	if len(list) == 0 {
		return 0, nil
	}
	meta, _ := list[0]["meta"].(map[string]any)
	return parseUnix(meta["count"]), nil
}

// scalar types that can be selected without a sub-selection
var scalarTypes = map[string]bool{
	"text": true, "text[]": true, "string": true, "string[]": true,
	"int": true, "int[]": true, "number": true, "number[]": true,
	"boolean": true, "boolean[]": true, "date": true, "date[]": true,
	"uuid": true, "uuid[]": true, "blob": true,
}

func searchFields(props []*wmodels.Property) []graphql.Field {
	fields := make([]graphql.Field, 0, len(props)+1)
	for _, p := range props {
		if p != nil && len(p.DataType) == 1 && scalarTypes[p.DataType[0]] {
			fields = append(fields, graphql.Field{Name: p.Name})
		}
	}
	return append(fields, graphql.Field{
		Name: "_additional",
		Fields: []graphql.Field{
			{Name: "id"},
			{Name: "creationTimeUnix"},
			{Name: "lastUpdateTimeUnix"},
		},
	})
}

// Search runs a BM25 keyword query and reports how long it took
func (c *Client) Search(ctx context.Context, collection, tenant, term string, limit int) (models.SearchResult, error) {
	if err := checkName(collection); err != nil {
		return models.SearchResult{}, err
	}
	cl, err := c.w.Schema().ClassGetter().WithClassName(collection).Do(ctx)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("get schema of %s: %w", collection, err)
	}

	get := c.w.GraphQL().Get().
		WithClassName(collection).
		WithLimit(limit).
		WithFields(searchFields(cl.Properties)...).
		WithBM25((&graphql.BM25ArgumentBuilder{}).WithQuery(term))
	if tenant != "" {
		get = get.WithTenant(tenant)
	}

	start := time.Now()
	resp, err := get.Do(ctx)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("keyword search %q in %s: %w", term, collection, err)
	}
	elapsed := time.Since(start)

	list, err := rows(resp, "Get", collection)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("keyword search %q in %s: %w", term, collection, err)
	}
	objects := make([]models.Object, 0, len(list))
	for _, row := range list {
		obj := models.Object{Collection: collection, Tenant: tenant}
		if add, ok := row["_additional"].(map[string]any); ok {
			obj.ID, _ = add["id"].(string)
			obj.CreatedUnix = parseUnix(add["creationTimeUnix"])
			obj.UpdatedUnix = parseUnix(add["lastUpdateTimeUnix"])
		}
		delete(row, "_additional")
		obj.Properties = row
		objects = append(objects, obj)
	}
	return models.SearchResult{Objects: objects, ExecutionTime: elapsed}, nil
}

// parseUnix accepts the string form GraphQL uses as well as numbers
func parseUnix(v any) int64 {
	switch t := v.(type) {
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case float64:
		return int64(t)
	case json.Number:
		n, _ := t.Int64()
		return n
	}
	return 0
}
