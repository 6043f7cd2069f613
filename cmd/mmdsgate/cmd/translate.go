package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/solatis/mmdsgate/internal/mmds"
	"github.com/solatis/mmdsgate/internal/types"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate one request offline and print the parsed action",
	Example: `  mmdsgate translate --method PUT --path /mmds/version --body '{"version":"V2"}'
  mmdsgate translate --method PATCH --path /mmds --body-file patch.json`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().String("method", "GET", "HTTP method")
	translateCmd.Flags().String("path", "/mmds", "request path")
	translateCmd.Flags().String("body", "", "request body")
	translateCmd.Flags().String("body-file", "", "read request body from file (- for stdin)")
	translateCmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	method, _ := cmd.Flags().GetString("method")
	path, _ := cmd.Flags().GetString("path")
	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	parsed, err := mmds.NewTranslator(nil).Translate(method, path, body)
	if err != nil {
		var reqErr *types.RequestError
		if errors.As(err, &reqErr) {
			return fmt.Errorf("%d %s: %w", reqErr.HTTPStatus(), reqErr.Kind, err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(parsed)
}

func readBody(cmd *cobra.Command) ([]byte, error) {
	if cmd.Flags().Changed("body") {
		body, _ := cmd.Flags().GetString("body")
		return []byte(body), nil
	}
	file, _ := cmd.Flags().GetString("body-file")
	switch file {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(cmd.InOrStdin())
	default:
		return os.ReadFile(file)
	}
}
