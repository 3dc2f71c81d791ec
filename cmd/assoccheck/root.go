package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gorm.io/assoc"
	"gorm.io/assoc/schema"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "assoccheck",
		Short:         "Check relationship registries against a schema catalog",
		Long:          "Resolve every relationship of a registry against a schema catalog and report the ones that don't resolve.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file, ASSOC_* environment variables take precedence")
	rootCmd.PersistentFlags().String("catalog", "", "schema catalog yaml file, overrides the config")
	rootCmd.PersistentFlags().String("registry", "", "relationship registry yaml file, overrides the config")

	return rootCmd
}

// newResolver builds a resolver from the config file and path flags of cmd
func newResolver(cmd *cobra.Command) (*assoc.Resolver, error) {
	configPath, _ := cmd.Flags().GetString("config")
	config, err := assoc.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		config.CatalogPath = path
	}
	if path, _ := cmd.Flags().GetString("registry"); path != "" {
		config.RegistryPath = path
	}

	if config.CatalogPath == "" || config.RegistryPath == "" {
		return nil, fmt.Errorf("%w: both a catalog and a registry are required", assoc.ErrConfiguration)
	}

	if err := config.AfterInitialize(); err != nil {
		return nil, err
	}

	f, err := os.Open(config.CatalogPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalog, err := schema.LoadCatalog(f)
	if err != nil {
		return nil, err
	}

	registry, err := assoc.LoadRegistryFile(config.RegistryPath)
	if err != nil {
		return nil, err
	}

	return assoc.NewResolver(registry, catalog, config.NamingStrategy, config.Logger), nil
}
