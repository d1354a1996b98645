package client

import (
	"fmt"
	"net/url"

	"github.com/gorilla/schema"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

var queryEncoder = schema.NewEncoder()

// encodeQuery turns request parameters into a query string. It accepts
// url.Values, string and attribute maps, *skella.ListOptions, and structs
// tagged for gorilla/schema.
func encodeQuery(params interface{}) (url.Values, error) {
	switch typed := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return typed, nil
	case map[string]string:
		values := url.Values{}
		for key, value := range typed {
			values.Set(key, value)
		}

		return values, nil
	case skella.Attributes:
		return attributeQuery(typed), nil
	case map[string]interface{}:
		return attributeQuery(typed), nil
	case *skella.ListOptions:
		return listQuery(typed)
	}

	values := url.Values{}

	err := queryEncoder.Encode(params, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", skella.ErrUnsupportedParams, err)
	}

	return values, nil
}

func attributeQuery(attributes map[string]interface{}) url.Values {
	values := url.Values{}
	for key, value := range attributes {
		values.Set(key, skella.FormatValue(value))
	}

	return values
}

func listQuery(opts *skella.ListOptions) (url.Values, error) {
	if opts == nil {
		return nil, nil
	}

	values := url.Values{}

	err := queryEncoder.Encode(opts, values)
	if err != nil {
		return nil, fmt.Errorf("encoding list options: %w", err)
	}

	for key, items := range opts.Extra {
		for _, item := range items {
			values.Add(key, item)
		}
	}

	return values, nil
}
