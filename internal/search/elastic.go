// Package search wraps the Elasticsearch index that holds user-submitted
// car documents.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
)

// Searcher is the slice of the search engine the retrieval pipeline and the
// API need: fuzzy full-text search plus single-document indexing.
type Searcher interface {
	Search(ctx context.Context, query string, size int) ([]map[string]any, error)
	Index(ctx context.Context, id string, doc map[string]any) (string, error)
}

// dynamicMapping is the open schema the index is created with: fields are
// mapped as documents arrive.
const dynamicMapping = `{"mappings":{"dynamic":true,"properties":{}}}`

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(host, index string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{host},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: index}, nil
}

// Recreate drops the index if it exists and creates it again with a dynamic
// mapping. Lifecycle errors are logged, not fatal: an index that is already
// absent on delete or already present on create leaves a usable index.
func (c *Client) Recreate(ctx context.Context) error {
	exists, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", c.index, err)
	}
	exists.Body.Close()

	if exists.StatusCode == 200 {
		del, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
		if err != nil {
			log.Warn().Err(err).Str("index", c.index).Msg("failed to delete search index")
		} else {
			if del.IsError() {
				log.Warn().Str("index", c.index).Str("status", del.Status()).Msg("search index delete rejected")
			}
			del.Body.Close()
		}
	}

	create, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(dynamicMapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", c.index, err)
	}
	defer create.Body.Close()
	if create.IsError() {
		// resource_already_exists and friends leave the index usable
		log.Warn().Str("index", c.index).Str("status", create.Status()).Msg("search index create rejected")
	}
	return nil
}

// Index stores doc under the given id; an empty id lets Elasticsearch
// assign one. The assigned id is returned.
func (c *Client) Index(ctx context.Context, id string, doc map[string]any) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("indexing document failed: %s", res.Status())
	}

	var out struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode index response: %w", err)
	}
	return out.ID, nil
}

// SearchableFields introspects the live mapping and returns the text and
// keyword fields currently known to the index.
func (c *Client) SearchableFields(ctx context.Context) ([]string, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithIndex(c.index),
		c.es.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping for %s: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("get mapping for %s failed: %s", c.index, res.Status())
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	return TextFields(mappingProperties(body, c.index)), nil
}

// Search runs a fuzzy multi_match query over every searchable field of the
// live mapping and returns the source documents of the hits. Fuzziness is
// automatic: the tolerated edit distance scales with term length.
func (c *Client) Search(ctx context.Context, query string, size int) ([]map[string]any, error) {
	fields, err := c.SearchableFields(ctx)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    fields,
				"fuzziness": "AUTO",
			},
		},
		"size": size,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]map[string]any, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
