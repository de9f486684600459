package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"printshop/storefront/internal/container"
	"printshop/storefront/internal/content"
	"printshop/storefront/internal/gallery"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info("Starting storefront...")
			app, err := container.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize container: %w", err)
			}
			defer app.Close()

			return app.Run(cmd.Context())
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Apply queued download increments to the content API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := container.NewWorker(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize worker container: %w", err)
			}
			defer app.Close()

			return app.RunWorkers(cmd.Context())
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the template catalog from the terminal",
	}
	cmd.AddCommand(catalogListCmd(), catalogShowCmd())
	return cmd
}

func catalogListCmd() *cobra.Command {
	var (
		search   string
		category string
		format   string
		page     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := container.NewCatalog(cfg)
			if err != nil {
				return err
			}

			c := gallery.NewController(content.NewTemplateSource(app.Fetcher), nil, gallery.Options{
				PageSize: cfg.Gallery.PageSize,
			})
			defer c.Close()

			if err := c.Load(cmd.Context()); err != nil {
				return err
			}
			c.SetActiveCategory(category)
			c.SetActiveFormat(format)
			c.SetSearchTerm(search)
			c.SetPage(page)

			view := c.Derive()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tFORMAT\tDOWNLOADS")
			for _, item := range view.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					item.ID, item.Title, item.CategoryKey, item.FormatKey, item.DownloadCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d matching\n",
				view.CurrentPage, view.PageCount, view.TotalMatches)
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "query", "q", "", "search title, description and tags")
	cmd.Flags().StringVar(&category, "category", "", "category key")
	cmd.Flags().StringVar(&format, "format", "", "file format")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func catalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one template as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := container.NewCatalog(cfg)
			if err != nil {
				return err
			}

			item, err := app.Fetcher.FetchTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("template %s not found", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		},
	}
}
