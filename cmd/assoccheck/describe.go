package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func registerDescribeCmd(rootCmd *cobra.Command) {
	describeCmd := &cobra.Command{
		Use:   "describe [type[.relationship]]...",
		Short: "print resolved relationships",
		Long:  "Print the direction, cardinality and join conditions of resolved relationships, all of them when no filter is given.",
		RunE:  runDescribe,
	}

	describeCmd.Flags().Bool("cascade", false, "print cascade rules and back references too")

	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver(cmd)
	if err != nil {
		return err
	}

	descriptors, err := resolver.Descriptors(cmd.Context())
	if err != nil {
		return err
	}

	withCascade, _ := cmd.Flags().GetBool("cascade")
	for _, desc := range descriptors {
		if !matchesAny(desc.Key(), args) {
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout(), desc)
		if withCascade {
			fmt.Fprintf(cmd.OutOrStdout(), "  cascade: %v\n", desc.Cascade)
			if desc.BackReference != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  back reference: %v.%v\n", desc.Target, desc.BackReference)
			}
		}
	}
	return nil
}

// matchesAny reports whether key, owner.name, is selected by one of filters
func matchesAny(key string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, filter := range filters {
		if key == filter || strings.HasPrefix(key, filter+".") {
			return true
		}
	}
	return false
}
