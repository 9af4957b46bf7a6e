package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/blocks"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	outlineFormat  = "outline"
	commandTimeout = 30 * time.Second
)

func newLibraryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "List the block types available in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeLibrary(cmd.OutOrStdout(), library.Default(nil))
		},
	}
}

func writeLibrary(out io.Writer, registry *library.Registry) error {
	for _, category := range registry.Categories() {
		if _, err := fmt.Fprintf(out, "%s\n", category); err != nil {
			return err
		}
		for _, descriptor := range registry.ByCategory(category) {
			if _, err := fmt.Fprintf(out, "  %-14s %s\n", descriptor.ID, descriptor.DisplayName); err != nil {
				return err
			}
		}
	}
	return nil
}

func newExportCommand() *cobra.Command {
	var (
		pageKey string
		format  string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored page as JSON, YAML or a block outline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageKey == "" {
				return errors.New("--page is required")
			}
			return withGateway(cmd.Context(), func(ctx context.Context, pageGateway gateway.Gateway) error {
				page, err := findPage(ctx, pageGateway, pageKey)
				if err != nil {
					return err
				}
				data, err := renderPage(page, format)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&pageKey, "page", "", "Page id or slug")
	cmd.Flags().StringVar(&format, "format", string(editor.FormatJSON), "Output format (json, yaml, outline)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// renderPage encodes page as a snapshot or, for the outline format, as a YAML block summary.
func renderPage(page pages.Page, format string) ([]byte, error) {
	if format == outlineFormat {
		return yaml.Marshal(blocks.Outline(page))
	}
	parsed, err := editor.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	export, err := editor.EncodePage(page, parsed)
	if err != nil {
		return nil, err
	}
	return export.Data, nil
}

func newImportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a page snapshot file through the configured gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := readSnapshot(args[0], format)
			if err != nil {
				return err
			}
			return withGateway(cmd.Context(), func(ctx context.Context, pageGateway gateway.Gateway) error {
				created, err := pageGateway.Create(ctx, gateway.DraftFromPage(page))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", created.ID, created.Slug, created.Status)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Snapshot format (json, yaml); inferred from the file extension when empty")
	return cmd
}

func readSnapshot(path, format string) (pages.Page, error) {
	var (
		parsed editor.Format
		err    error
	)
	if format == "" {
		parsed, err = editor.FormatFromFilename(path)
	} else {
		parsed, err = editor.ParseFormat(format)
	}
	if err != nil {
		return pages.Page{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pages.Page{}, err
	}
	return editor.DecodePage(data, parsed)
}

func newTokenCommand() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, _, err := loadRuntime()
			if err != nil {
				return err
			}
			tokenIssuer, err := newTokenIssuer(appConfig)
			if err != nil {
				return err
			}
			issued, err := tokenIssuer.IssueToken(subject)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(issued)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "editor", "Token subject")
	return cmd
}

func withGateway(parent context.Context, run func(context.Context, gateway.Gateway) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	appConfig, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pageGateway, closeGateway, err := openGateway(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeGateway() //nolint:errcheck
	return run(ctx, pageGateway)
}

func findPage(ctx context.Context, pageGateway gateway.Gateway, key string) (pages.Page, error) {
	page, err := pageGateway.Get(ctx, key)
	if err == nil || !errors.Is(err, gateway.ErrPageNotFound) {
		return page, err
	}
	return pageGateway.GetBySlug(ctx, key)
}
