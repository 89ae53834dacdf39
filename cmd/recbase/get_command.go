package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recbase/internal/catalog"
	"recbase/internal/contenthash"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "get <file-id|hash>",
		Short: "Write the original bytes of a stored file",
		Long: "The file is named by its id or its SHA-256 content hash. Writes to the file's original name " +
			"in the working directory unless -o is given. Use -o - for stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byHash := contenthash.Valid(strings.ToLower(args[0]))
			var fileID int64
			if !byHash {
				id, err := parseID("file", args[0])
				if err != nil {
					return err
				}
				fileID = id
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				var file *catalog.File
				var data []byte
				var err error
				if byHash {
					file, data, err = a.service.RetrieveByHash(c, args[0])
				} else {
					file, data, err = a.service.Retrieve(c, fileID)
				}
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if target == "" {
					target = filepath.Base(file.OriginalFilename)
					if target == "" || target == "." || target == string(filepath.Separator) {
						target = file.Hash
					}
				}
				flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
				if overwrite {
					flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
				}
				f, err := os.OpenFile(target, flags, 0o644)
				if err != nil {
					if os.IsExist(err) {
						return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
					}
					return fmt.Errorf("create %s: %w", target, err)
				}
				if _, err := f.Write(data); err != nil {
					_ = f.Close()
					return fmt.Errorf("write %s: %w", target, err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote file #%d to %s (%s)\n", file.ID, target, formatBytes(int64(len(data))))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path, or - for stdout")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing destination file")
	return cmd
}
