// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/assetstore/lib/assetstore"
	"github.com/bureau-foundation/assetstore/lib/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "list":
		return runList(args[1:])
	case "show":
		return runShow(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "purge-owner":
		return runPurgeOwner(args[1:])
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: assetstore <command> [flags]

Commands:
  list         list stored assets, optionally filtered by owner
  show         show metadata for one asset
  delete       delete one asset
  purge-owner  delete every asset belonging to an owner

Store selection (every command):
  --root    store root directory
  --config  YAML config file (default: $ASSETSTORE_CONFIG)`)
}

// storeFlags registers the store selection flags shared by every
// subcommand and returns pointers to their values.
func storeFlags(flagSet *pflag.FlagSet) (root, configPath *string) {
	root = flagSet.String("root", "", "store root directory")
	configPath = flagSet.String("config", "", "YAML config file (default: $ASSETSTORE_CONFIG)")
	return root, configPath
}

// openStore opens the store named by --root, falling back to the
// storage.root of the config file. The CLI only reads and deletes, so
// the write-path codec configuration is irrelevant; logging goes to
// stderr at warn level to keep table output clean.
func openStore(root, configPath string) (*assetstore.Store, error) {
	if root == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		root = cfg.Storage.Root
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return assetstore.NewStore(root, assetstore.Options{Logger: logger})
}

// --- list ---

func runList(args []string) error {
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	root, configPath := storeFlags(flagSet)
	owner := flagSet.String("owner", "", "only list assets belonging to this owner")
	outputJSON := flagSet.Bool("json", false, "output as JSON instead of a table")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*root, *configPath)
	if err != nil {
		return err
	}

	type listRow struct {
		OwnerID     string `json:"owner_id"`
		AssetID     string `json:"asset_id"`
		ContentType string `json:"content_type"`
		FileName    string `json:"file_name,omitempty"`
		Size        int64  `json:"size"`
	}

	var rows []listRow
	enumerator := store.Enumerate()
	for {
		entry, err := enumerator.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("enumerating assets: %w", err)
		}
		if *owner != "" && entry.OwnerID != *owner {
			continue
		}
		row := listRow{
			OwnerID:     entry.OwnerID,
			AssetID:     entry.AssetID,
			ContentType: entry.Metadata.ContentType,
			Size:        entry.Size,
		}
		if entry.Metadata.FileName != nil {
			row.FileName = *entry.Metadata.FileName
		}
		rows = append(rows, row)
	}

	if *outputJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "OWNER\tASSET\tTYPE\tSIZE\tFILENAME")
	for _, row := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n",
			row.OwnerID, row.AssetID, row.ContentType, row.Size, row.FileName)
	}
	return writer.Flush()
}

// --- show ---

func runShow(args []string) error {
	flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
	root, configPath := storeFlags(flagSet)
	outputJSON := flagSet.Bool("json", false, "output as JSON instead of text")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	positional := flagSet.Args()
	if len(positional) != 2 {
		return fmt.Errorf("usage: assetstore show [flags] <owner> <asset>")
	}
	ownerID, assetID := positional[0], positional[1]

	store, err := openStore(*root, *configPath)
	if err != nil {
		return err
	}

	meta, err := store.ReadMetadata(ownerID, assetID)
	if err != nil {
		return err
	}
	effectiveSize, err := store.EffectiveSize(ownerID, assetID)
	if err != nil {
		return err
	}

	if *outputJSON {
		out := struct {
			OwnerID       string  `json:"owner_id"`
			AssetID       string  `json:"asset_id"`
			ContentType   string  `json:"content_type"`
			FileName      *string `json:"file_name"`
			OriginalSize  *int64  `json:"original_size"`
			EffectiveSize int64   `json:"effective_size"`
		}{ownerID, assetID, meta.ContentType, meta.FileName, meta.OriginalSize, effectiveSize}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Owner:\t%s\n", ownerID)
	fmt.Fprintf(writer, "Asset:\t%s\n", assetID)
	fmt.Fprintf(writer, "Content type:\t%s\n", meta.ContentType)
	if meta.FileName != nil {
		fmt.Fprintf(writer, "File name:\t%s\n", *meta.FileName)
	}
	if meta.OriginalSize != nil {
		fmt.Fprintf(writer, "Original size:\t%d\n", *meta.OriginalSize)
	}
	fmt.Fprintf(writer, "Effective size:\t%d\n", effectiveSize)
	return writer.Flush()
}

// --- delete ---

func runDelete(args []string) error {
	flagSet := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	root, configPath := storeFlags(flagSet)
	silent := flagSet.Bool("silent", false, "treat a missing asset as success")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	positional := flagSet.Args()
	if len(positional) != 2 {
		return fmt.Errorf("usage: assetstore delete [flags] <owner> <asset>")
	}
	ownerID, assetID := positional[0], positional[1]

	store, err := openStore(*root, *configPath)
	if err != nil {
		return err
	}

	if *silent {
		store.SilentDelete(ownerID, assetID)
		return nil
	}
	if err := store.Delete(ownerID, assetID); err != nil {
		return err
	}
	fmt.Printf("deleted %s/%s\n", ownerID, assetID)
	return nil
}

// --- purge-owner ---

func runPurgeOwner(args []string) error {
	flagSet := pflag.NewFlagSet("purge-owner", pflag.ContinueOnError)
	root, configPath := storeFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	positional := flagSet.Args()
	if len(positional) != 1 {
		return fmt.Errorf("usage: assetstore purge-owner [flags] <owner>")
	}
	ownerID := positional[0]

	store, err := openStore(*root, *configPath)
	if err != nil {
		return err
	}

	if err := store.DeleteOwner(ownerID); err != nil {
		return err
	}
	fmt.Printf("purged all assets for %s\n", ownerID)
	return nil
}
