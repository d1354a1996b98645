package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the API schema",
		Long:  "List the resources the API publishes and show their properties",
	}

	cmd.AddCommand(newSchemaResourcesCommand())
	cmd.AddCommand(newSchemaShowCommand())

	return cmd
}

func newSchemaResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resources",
		Aliases: []string{"ls"},
		Short:   "List resources",
		Long:    "List every resource definition built from the schema, entities before lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			definitions := conn.Schema().Resources()

			return render(cmd.OutOrStdout(), definitions, func(table *tablewriter.Table) error {
				table.Header("Name", "Kind", "Path", "Element", "Version")

				for _, definition := range definitions {
					element := definition.ElementName()
					if element == "" {
						element = constants.None
					}

					err := table.Append(
						definition.Name,
						definition.Kind.String(),
						definition.PathTemplate,
						element,
						definition.APIVersion,
					)
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}
}

func newSchemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show RESOURCE",
		Short: "Show a resource definition",
		Long:  "Show the path template and properties of one resource. Names are normalized, so 'blog-post' finds BlogPost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			definition, ok := conn.Schema().FindResourceByName(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownResource, args[0])
			}

			return render(cmd.OutOrStdout(), definitionView(definition), propertyTable(definition))
		},
	}
}

type definitionDetail struct {
	Name        string              `json:"name"                  yaml:"name"`
	Kind        skella.ResourceKind `json:"kind"                  yaml:"kind"`
	Path        string              `json:"path"                  yaml:"path"`
	APIVersion  string              `json:"api_version"           yaml:"api_version"`
	Element     string              `json:"element,omitempty"     yaml:"element,omitempty"`
	Title       string              `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []string            `json:"variables"             yaml:"variables"`
	Properties  []skella.Property   `json:"properties"            yaml:"properties"`
}

func definitionView(definition *skella.ResourceDefinition) definitionDetail {
	return definitionDetail{
		Name:        definition.Name,
		Kind:        definition.Kind,
		Path:        definition.PathTemplate,
		APIVersion:  definition.APIVersion,
		Element:     definition.ElementName(),
		Title:       definition.Endpoint.Title,
		Description: definition.Endpoint.Description,
		Variables:   skella.PathVariables(definition.PathTemplate),
		Properties:  definition.Endpoint.Properties,
	}
}

func propertyTable(definition *skella.ResourceDefinition) func(*tablewriter.Table) error {
	return func(table *tablewriter.Table) error {
		table.Header("Property", "Type", "Optional", "Children", "File Type")

		for _, property := range definition.Endpoint.Properties {
			err := table.Append(
				property.Name,
				string(property.Type),
				strconv.FormatBool(property.Optional),
				orNone(property.ChildrenType),
				orNone(property.FileType),
			)
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	}
}

func orNone(value string) string {
	if value == "" {
		return constants.None
	}

	return value
}
