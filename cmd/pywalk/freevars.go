package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chazu/pywalk/freevar"
	"github.com/chazu/pywalk/inspect"
	"github.com/chazu/pywalk/pyast"
	"github.com/chazu/pywalk/pyobj"
)

func freevarsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "freevars FILE LINE",
		Short: "List the free member-access chains of the definition at FILE:LINE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad line %q: %w", args[1], err)
			}
			src, err := inspect.FileText(args[0])
			if err != nil {
				return err
			}
			m, err := pyast.Parse(context.Background(), args[0], src)
			if err != nil {
				return err
			}
			defer m.Close()
			if m.HasErrors() {
				log.Warningf("%s has syntax errors", args[0])
			}

			d, err := locate(m, kind, line)
			if err != nil {
				return err
			}
			wopts := cfg.WalkerOptions()
			catalog := cfg.Catalog()
			opts := pyast.Options{ExcludeCall: wopts.PureMappingMarker}
			resolver := freevar.NewResolver(wopts.Exclude)
			out := cmd.OutOrStdout()

			for _, c := range pyast.FreeChains(d, opts) {
				note := ""
				if resolver.Excludes(c.Root()) {
					note = "  (excluded)"
				} else if _, ok := pyobj.Builtin(c.Root()); ok {
					note = "  (builtin)"
				} else if len(c.Names) > 1 && catalog.IsOpaque(c.Root()) {
					note = "  (opaque)"
				}
				fmt.Fprintf(out, "%-8s %s%s\n", c.Pos, c, note)
			}
			if d.Kind == pyast.WithKind {
				for _, c := range pyast.BoundNames(d, opts) {
					fmt.Fprintf(out, "%-8s %s  (bound)\n", c.Pos, c)
				}
				for _, l := range pyast.ReturnLines(d) {
					fmt.Fprintf(out, "%-8d return not allowed in a with block\n", l)
				}
				for _, l := range pyast.YieldLines(d) {
					fmt.Fprintf(out, "%-8d yield not allowed in a with block\n", l)
				}
			}
			if d.Kind == pyast.ClassKind {
				for _, name := range pyast.DataMembersSetInInit(d) {
					fmt.Fprintf(out, "%-8s self.%s  (member)\n", "", name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "function", "definition kind: function, class or with")
	return cmd
}

func locate(m *pyast.Module, kind string, line int) (*pyast.Def, error) {
	switch kind {
	case "function":
		return m.FunctionAt(line)
	case "class":
		return m.ClassAt(line)
	case "with":
		return m.WithAt(line)
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}
