package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get RESOURCE [KEY=VALUE...]",
		Short: "Fetch a single resource",
		Long: `Fetch a single-entity resource. The assignments fill the path template,
for example: skella get user id=4f1c...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(cmd, args, func(model skella.Model) error {
				err := model.Fetch(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("failed to fetch %s: %w", model.URL(), err)
				}

				attributes := model.Attributes()

				return render(cmd.OutOrStdout(), attributes, attributeTable(attributes))
			})
		},
	}
}

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save RESOURCE KEY=VALUE...",
		Short: "Create or update a resource",
		Long:  "Send the assignments as the resource body. Models without an id are created with POST, others updated with PUT",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(cmd, args, func(model skella.Model) error {
				err := model.Save(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("failed to save %s: %w", model.URL(), err)
				}

				attributes := model.Attributes()

				return render(cmd.OutOrStdout(), attributes, attributeTable(attributes))
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RESOURCE KEY=VALUE...",
		Short: "Delete a resource",
		Long:  "Delete the single-entity resource addressed by the assignments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(cmd, args, func(model skella.Model) error {
				err := model.Destroy(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("failed to delete %s: %w", model.URL(), err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", model.URL())

				return nil
			})
		},
	}
}

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	var (
		field  string
		file   string
		method string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "upload RESOURCE [KEY=VALUE...]",
		Short: "Upload a file to a resource",
		Long: `Send a multipart form to a resource that declares file properties,
for example: skella upload user-avatar id=4f1c... --field image --file me.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || field == "" {
				return constants.ErrFileFieldRequired
			}

			return withModel(cmd, args, func(model skella.Model) error {
				content, err := os.Open(filepath.Clean(file))
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer content.Close()

				form := skella.NewForm()

				extra, err := parseAssignments(fields)
				if err != nil {
					return err
				}

				keys := make([]string, 0, len(extra))
				for key := range extra {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				for _, key := range keys {
					form.AddField(key, skella.FormatValue(extra[key]))
				}

				form.AddFile(field, filepath.Base(file), content)

				if fileType := model.FileTypeForProperty(field); fileType != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s as %s (%s)\n", file, field, fileType)
				}

				var result skella.Attributes

				err = model.SendForm(commandContext(cmd), method, form, &result)
				if err != nil {
					return fmt.Errorf("failed to upload to %s: %w", model.URL(), err)
				}

				return render(cmd.OutOrStdout(), result, attributeTable(result))
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "form field holding the file")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path of the file to upload")
	cmd.Flags().StringVar(&method, "method", http.MethodPost, "HTTP method")
	cmd.Flags().StringArrayVar(&fields, "form", nil, "extra form field as KEY=VALUE (repeatable)")

	return cmd
}

// NewRawCommand creates the raw command.
func NewRawCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "raw RESOURCE [KEY=VALUE...]",
		Short: "GET a resource address and print the body",
		Long:  "Issue a GET with query parameters against a resource address and print the decoded JSON as is",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(cmd, args, func(model skella.Model) error {
				query, err := parseAssignments(params)
				if err != nil {
					return err
				}

				var body interface{}

				err = model.RawGet(commandContext(cmd), query, &body)
				if err != nil {
					return fmt.Errorf("failed to get %s: %w", model.URL(), err)
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")

				return encoder.Encode(body)
			})
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as KEY=VALUE (repeatable)")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		offset        int
		limit         int
		params        []string
		receivedOrder bool
		all           bool
		maxPages      int
	)

	cmd := &cobra.Command{
		Use:   "list RESOURCE [KEY=VALUE...]",
		Short: "Fetch a page of a list resource",
		Long: `Fetch one page of a list resource. Assignments fill the path template,
--param adds query parameters. Members are ordered by id unless --received-order is set.
With --all every page is fetched from the start, --limit members at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			options, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			var collectionOpts []skella.CollectionOption
			if receivedOrder {
				collectionOpts = append(collectionOpts, skella.WithReceivedOrder())
			}

			collection, err := conn.Schema().NewCollection(args[0], options, collectionOpts...)
			if err != nil {
				return err
			}

			listOptions := skella.NewListOptions(offset, limit)

			query, err := parseAssignments(params)
			if err != nil {
				return err
			}

			for key, value := range query {
				listOptions.With(key, skella.FormatValue(value))
			}

			if all {
				pageSize := limit
				if pageSize == 0 {
					pageSize = constants.DefaultPageSize
				}

				models, err := skella.FetchAllPages(commandContext(cmd), collection, &skella.PaginationOptions{
					PageSize: pageSize,
					MaxPages: maxPages,
					Query:    listOptions,
				})
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", collection.URL(), err)
				}

				return renderModels(cmd, page{Offset: 0, Limit: len(models)}, models)
			}

			err = collection.Fetch(commandContext(cmd), listOptions)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", collection.URL(), err)
			}

			return renderModels(cmd, page{Offset: collection.Offset(), Limit: collection.Limit()}, collection.Models())
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "index of the first member")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "extra query parameter as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&receivedOrder, "received-order", false, "keep the order the server sent")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop --all after this many pages (0 for no limit)")

	return cmd
}

type page struct {
	Offset  int                 `json:"offset"  yaml:"offset"`
	Limit   int                 `json:"limit"   yaml:"limit"`
	Objects []skella.Attributes `json:"objects" yaml:"objects"`
}

func renderModels(cmd *cobra.Command, result page, models []skella.Model) error {
	columns := map[string]bool{}

	for _, model := range models {
		attributes := model.Attributes()
		result.Objects = append(result.Objects, attributes)

		for key := range attributes {
			columns[key] = true
		}
	}

	header := make([]string, 0, len(columns))
	for key := range columns {
		header = append(header, key)
	}

	sort.Strings(header)

	return render(cmd.OutOrStdout(), result, func(table *tablewriter.Table) error {
		headerCells := make([]interface{}, len(header))
		for i, key := range header {
			headerCells[i] = key
		}

		table.Header(headerCells...)

		for _, attributes := range result.Objects {
			row := make([]string, len(header))
			for i, key := range header {
				row[i] = formatCell(attributes[key])
			}

			err := table.Append(row)
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	})
}

// withModel connects, builds the model named by args[0] from the remaining
// assignments and hands it to fn.
func withModel(cmd *cobra.Command, args []string, fn func(skella.Model) error) error {
	attributes, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}

	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	model, err := conn.Schema().NewModel(args[0], attributes)
	if err != nil {
		return err
	}

	return fn(model)
}
