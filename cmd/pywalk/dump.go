package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/chazu/pywalk/registry"
)

func dumpCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "dump GRAPH",
		Short: "Print the nodes of a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readGraph(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				spew.Fdump(out, snap)
				return nil
			}
			hash, err := snap.HashString()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "root %d, %d nodes, hash %s\n", snap.Root, len(snap.Nodes), hash)
			for i := range snap.Nodes {
				printNode(out, &snap.Nodes[i])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "dump the decoded structures verbatim")
	return cmd
}

func printNode(w io.Writer, n *registry.Node) {
	fmt.Fprintf(w, "%6d  %-18s ", n.ID, n.Kind)
	switch n.Kind {
	case registry.KindPrimitive:
		fmt.Fprint(w, n.Primitive)
	case registry.KindPrimitiveList:
		parts := make([]string, len(n.Primitives))
		for i, p := range n.Primitives {
			parts[i] = p.String()
		}
		fmt.Fprintf(w, "[%s]", strings.Join(parts, ", "))
	case registry.KindTuple, registry.KindList:
		fmt.Fprint(w, n.Items)
	case registry.KindDict:
		for i := range n.Keys {
			fmt.Fprintf(w, "%d: %d  ", n.Keys[i], n.Values[i])
		}
	case registry.KindPackedArray:
		fmt.Fprintf(w, "%s, %d bytes", n.DType, len(n.Data))
	case registry.KindNamedSingleton:
		fmt.Fprint(w, n.Name)
	case registry.KindBuiltinException:
		fmt.Fprintf(w, "%s args=%d", n.Name, n.Ref)
	case registry.KindStackTrace:
		for _, f := range n.Frames {
			fmt.Fprintf(w, "%s:%d  ", f.Path, f.Line)
		}
	case registry.KindFile:
		fmt.Fprintf(w, "%s, %d bytes", n.Path, len(n.Text))
	case registry.KindRemoteHandle:
		fmt.Fprintf(w, "%v", n.Handle)
	case registry.KindFunction, registry.KindClass, registry.KindWithBlock:
		fmt.Fprintf(w, "file=%d line=%d", n.Def.File, n.Def.Line)
		for _, b := range n.Def.FreeVars {
			fmt.Fprintf(w, " %s=%d", b.Chain, b.ID)
		}
		if len(n.Bases) > 0 {
			fmt.Fprintf(w, " bases=%v", n.Bases)
		}
	case registry.KindInstanceMethod:
		fmt.Fprintf(w, "%d.%s", n.Ref, n.Name)
	case registry.KindClassInstance:
		fmt.Fprintf(w, "class=%d", n.Ref)
		for _, m := range n.Members {
			fmt.Fprintf(w, " %s=%d", m.Name, m.ID)
		}
	case registry.KindUnconvertible:
		if n.ModulePath != nil {
			fmt.Fprint(w, strings.Join(n.ModulePath, "."))
		}
	}
	fmt.Fprintln(w)
}

func convertCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Rewrite a graph file as a binary stream or a CBOR snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = cfg.Output.Format
			}
			snap, err := readGraph(args[0])
			if err != nil {
				return err
			}
			if err := writeGraph(args[1], snap, format); err != nil {
				return err
			}
			hash, err := snap.HashString()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: binary or cbor (default from configuration)")
	return cmd
}
