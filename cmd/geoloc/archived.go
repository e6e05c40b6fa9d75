package main

import (
	"fmt"

	"geoloc/internal/placetype"
	"geoloc/pkg/graceful"

	"github.com/spf13/cobra"
)

var archivedType string

var archivedCmd = &cobra.Command{
	Use:   "archived [type id]",
	Short: "List archived places, or print one",
	Long:  `Without arguments, lists the object keys in the archive bucket. With a place type and id, prints the archived record.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("want no arguments or a type and an id, got %d", len(args))
		}
		return nil
	},
	RunE: runArchived,
}

func init() {
	archivedCmd.Flags().StringVarP(&archivedType, "type", "t", "", "Only list places of this type")
	archivedCmd.Flags().StringVarP(&exportBucket, "bucket", "b", "", "Bucket name (default ARCHIVE_BUCKET)")
}

func runArchived(cmd *cobra.Command, args []string) error {
	if archivedType != "" && !placetype.Valid(archivedType) {
		return fmt.Errorf("unknown place type %q", archivedType)
	}
	ctx, cancel := graceful.Context(cmd.Context())
	defer cancel()

	b := loadBackend(ctx)
	defer b.Close()

	archive, err := openArchive(ctx, b, exportBucket)
	if err != nil {
		return err
	}

	if len(args) == 2 {
		rec, err := archive.Get(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(rec)
	}

	keys, err := archive.Keys(ctx, archivedType)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(keys)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
