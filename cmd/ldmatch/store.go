package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const nameFlag = "name"

func newLoadCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "load --name GRAPH DOCUMENT",
		Short:   "Flatten a JSON-LD document and store it as a named graph",
		Long:    `The load command flattens a JSON-LD document and stores its nodes under a graph name, replacing any graph already stored under that name.`,
		Example: `  ldmatch load --name people people.jsonld`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString(nameFlag)

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			graph, err := a.processor().Flatten(cmd.Context(), doc, nil)
			if err != nil {
				return err
			}

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.PutGraph(name, graph); err != nil {
				return err
			}
			a.logger.Info("graph loaded", zap.String("graph", name), zap.Int("subjects", len(graph)))
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d subjects into graph %s\n", len(graph), name)
			return nil
		},
	}

	cmd.Flags().String(nameFlag, "", "(required) the graph name")
	_ = cmd.MarkFlagRequired(nameFlag)
	return cmd
}

func newGraphsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graphs",
		Short: "List the stored graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.Graphs()
			if err != nil {
				return err
			}
			for _, name := range names {
				count, err := store.Count(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, count)
			}
			return nil
		},
	}
}

func newDropCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop --name GRAPH",
		Short: "Delete a stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString(nameFlag)

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteGraph(name); err != nil {
				return err
			}
			a.logger.Info("graph dropped", zap.String("graph", name))
			return nil
		},
	}

	cmd.Flags().String(nameFlag, "", "(required) the graph name")
	_ = cmd.MarkFlagRequired(nameFlag)
	return cmd
}
