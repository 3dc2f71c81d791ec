package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"gorm.io/assoc"
)

func registerValidateCmd(rootCmd *cobra.Command) {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "resolve every registered relationship",
		Long:  "Resolve every registered relationship, check back references pair up and list relationships writing the same rows.",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	resolver, err := newResolver(cmd)
	if err != nil {
		return err
	}

	if err := resolver.ValidateAll(cmd.Context()); err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			fmt.Fprintln(cmd.ErrOrStderr(), e)
		}
		return fmt.Errorf("%d relationships failed to resolve", len(errs))
	}

	descriptors, err := resolver.Descriptors(cmd.Context())
	if err != nil {
		return err
	}

	for _, overlap := range assoc.Overlaps(descriptors) {
		fmt.Fprintln(cmd.OutOrStdout(), "warning:", overlap)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d relationships valid\n", len(descriptors))
	return nil
}
