package search

import "sort"

// TextFields extracts the searchable field names from an index mapping's
// properties. Top-level fields of type "text" or "keyword" are included
// directly; for "object" fields, sub-fields of those types are included as
// "parent.child". The result is sorted so field discovery is deterministic.
func TextFields(properties map[string]any) []string {
	// Never nil: a fresh index has no properties yet, and a search body with
	// "fields":null is rejected by Elasticsearch while "fields":[] falls back
	// to the default fields and returns no hits.
	fields := []string{}
	for name, raw := range properties {
		info, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch info["type"] {
		case "text", "keyword":
			fields = append(fields, name)
		case "object":
			sub, ok := info["properties"].(map[string]any)
			if !ok {
				continue
			}
			for subName, subRaw := range sub {
				subInfo, ok := subRaw.(map[string]any)
				if !ok {
					continue
				}
				if t := subInfo["type"]; t == "text" || t == "keyword" {
					fields = append(fields, name+"."+subName)
				}
			}
		}
	}
	sort.Strings(fields)
	return fields
}

// mappingProperties digs the properties out of a get-mapping response,
// which may or may not be wrapped in the index name.
func mappingProperties(body map[string]any, index string) map[string]any {
	mappings := body
	if wrapped, ok := body[index].(map[string]any); ok {
		mappings = wrapped
	}
	inner, ok := mappings["mappings"].(map[string]any)
	if !ok {
		return nil
	}
	props, _ := inner["properties"].(map[string]any)
	return props
}
