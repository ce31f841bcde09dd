package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glowpress/glowpress/config"
	"github.com/glowpress/glowpress/internal/catalog"
	"github.com/glowpress/glowpress/provider"
)

func indexCMD() *cobra.Command {
	var cfgPath string
	var index = &cobra.Command{
		Use:   "index",
		Short: "Manage the product catalog index",
	}

	var rebuild = &cobra.Command{
		Use:   "rebuild",
		Short: "Re-embed the catalog CSV and overwrite the persisted index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			prov, err := provider.NewProvider(cfg.LLM, cfg.Embedding)
			if err != nil {
				return err
			}
			ix, err := catalog.RebuildIndex(cmd.Context(), cfg.Catalog.CSVPath, cfg.Catalog.IndexPath, prov)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d products to %s\n", ix.Len(), cfg.Catalog.IndexPath)
			return nil
		},
	}

	index.AddCommand(rebuild)
	index.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return index
}
