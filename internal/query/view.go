package query

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// EncodeView normalizes view query options. Key bounds are sent as JSON
// literals and reduce defaults to false, whether or not the view has a
// reduce function.
func EncodeView(params *couch.QueryParams) (couch.Params, error) {
	if params == nil {
		params = &couch.QueryParams{}
	}

	var out couch.Params

	addInt(&out, "limit", params.Limit)
	addInt(&out, "skip", params.Skip)
	addBool(&out, "descending", params.Descending)

	if err := addKeys(&out, params.Key, params.Keys, params.StartKey, params.EndKey); err != nil {
		return nil, err
	}

	addBool(&out, "include_docs", params.IncludeDocs)
	addBool(&out, "inclusive_end", params.InclusiveEnd)
	addBool(&out, "sorted", params.Sorted)

	if params.Reduce == nil {
		out.Add("reduce", false)
	} else {
		out.Add("reduce", *params.Reduce)
	}

	addBool(&out, "group", params.Group)
	addInt(&out, "group_level", params.GroupLevel)

	if params.Update != "" {
		out.Add("update", params.Update)
	}

	addBool(&out, "stable", params.Stable)
	addBool(&out, "conflicts", params.Conflicts)

	keys := make([]string, 0, len(params.Extra))
	for key := range params.Extra {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if params.Extra[key] != nil {
			out.Add(key, params.Extra[key])
		}
	}

	return out, nil
}

// EncodeList normalizes the options of _all_dbs and _all_docs.
func EncodeList(params *couch.ListParams) (couch.Params, error) {
	if params == nil {
		return nil, nil
	}

	var out couch.Params

	addInt(&out, "limit", params.Limit)
	addInt(&out, "skip", params.Skip)
	addBool(&out, "descending", params.Descending)
	addBool(&out, "include_docs", params.IncludeDocs)

	if err := addKeys(&out, params.Key, params.Keys, params.StartKey, params.EndKey); err != nil {
		return nil, err
	}

	return out, nil
}

// EncodeLoadDoc normalizes the options of a document read.
func EncodeLoadDoc(params *couch.LoadDocParams) couch.Params {
	if params == nil {
		return nil
	}

	var out couch.Params

	addBool(&out, "attachments", params.Attachments)
	addBool(&out, "att_encoding_info", params.AttEncodingInfo)
	addBool(&out, "conflicts", params.Conflicts)
	addBool(&out, "revs_info", params.RevsInfo)

	if params.Rev != "" {
		out.Add("rev", params.Rev)
	}

	return out
}

func addKeys(out *couch.Params, key any, keys []any, startKey, endKey any) error {
	bounds := []struct {
		name  string
		value any
	}{
		{"key", key},
		{"keys", keys},
		{"start_key", startKey},
		{"end_key", endKey},
	}

	for _, bound := range bounds {
		if isNil(bound.value) {
			continue
		}

		text, err := json.Marshal(bound.value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", bound.name, err)
		}

		out.Add(bound.name, string(text))
	}

	return nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	if keys, ok := value.([]any); ok {
		return keys == nil
	}

	return false
}

func addBool(out *couch.Params, key string, value *bool) {
	if value != nil {
		out.Add(key, *value)
	}
}

func addInt(out *couch.Params, key string, value *int) {
	if value != nil {
		out.Add(key, *value)
	}
}
