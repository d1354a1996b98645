package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// parseAssignments turns key=value arguments into attributes. Values that
// parse as JSON numbers or booleans keep that type.
func parseAssignments(args []string) (skella.Attributes, error) {
	attributes := skella.Attributes{}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidAttribute, arg)
		}

		attributes[key] = typedValue(value)
	}

	return attributes, nil
}

func typedValue(value string) interface{} {
	if number, err := strconv.ParseInt(value, 10, 64); err == nil {
		return number
	}

	if number, err := strconv.ParseFloat(value, 64); err == nil {
		return number
	}

	if flag, err := strconv.ParseBool(value); err == nil && (value == "true" || value == "false") {
		return flag
	}

	return value
}

func outputFormat() string {
	output := viper.GetString("output")
	if output == "" {
		return constants.FormatTable
	}

	return output
}

// render writes data as JSON or YAML, or calls table for the table format.
func render(w io.Writer, data interface{}, table func(*tablewriter.Table) error) error {
	switch outputFormat() {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()

		return encoder.Encode(data)
	case constants.FormatTable:
		writer := tablewriter.NewWriter(w)

		err := table(writer)
		if err != nil {
			return err
		}

		err = writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, outputFormat())
	}
}

// attributeTable lists attributes as sorted property/value rows.
func attributeTable(attributes skella.Attributes) func(*tablewriter.Table) error {
	return func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		keys := make([]string, 0, len(attributes))
		for key := range attributes {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			err := table.Append(key, formatCell(attributes[key]))
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	}
}

func formatCell(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return constants.NotAvailable
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(data)
	default:
		return skella.FormatValue(typed)
	}
}
