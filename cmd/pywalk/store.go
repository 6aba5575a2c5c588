package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/pywalk/graphstore"
)

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep graph snapshots in the local store",
	}
	cmd.AddCommand(storePutCmd(), storeGetCmd(), storeListCmd())
	return cmd
}

func openStore(ctx context.Context) (*graphstore.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		if path, err = graphstore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	log.Debugf("opening store %s", path)
	return graphstore.Open(ctx, path)
}

func storePutCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "put GRAPH",
		Short: "Store a graph file and print its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := readGraph(args[0])
			if err != nil {
				return err
			}
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Put(ctx, snap, label)
			if err != nil {
				return err
			}
			log.Noticef("stored walk %s", rec.WalkID)
			fmt.Fprintln(cmd.OutOrStdout(), rec.Hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "label recorded with the walk")
	return cmd
}

func storeGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get HASH OUT",
		Short: "Write a stored graph to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format == "" {
				format = cfg.Output.Format
			}
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeGraph(args[1], snap, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: binary or cbor (default from configuration)")
	return cmd
}

func storeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored walks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WALK\tHASH\tROOT\tNODES\tCREATED\tLABEL")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%.12s\t%d\t%d\t%s\t%s\n",
					r.WalkID, r.Hash, r.Root, r.Nodes, r.CreatedAt.Format(time.RFC3339), r.Label)
			}
			return tw.Flush()
		},
	}
}
