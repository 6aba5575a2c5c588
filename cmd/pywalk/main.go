// pywalk inspects and ships flattened object graphs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/pywalk/config"
)

var log = commonlog.GetLogger("pywalk.cmd")

// cfg is loaded before any subcommand runs.
var cfg *config.Config

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var verbose int

	root := &cobra.Command{
		Use:           "pywalk",
		Short:         "Inspect and store flattened Python object graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.FindAndLoad(".")
			}
			if err != nil {
				return err
			}

			verbosity := cfg.Log.Verbosity + verbose
			var logFile *string
			if cfg.Log.File != "" {
				logFile = &cfg.Log.File
			}
			commonlog.Configure(verbosity, logFile)
			if cfg.Path != "" {
				log.Debugf("loaded configuration from %s", cfg.Path)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: nearest pywalk.toml)")
	root.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")

	root.AddCommand(freevarsCmd(), dumpCmd(), convertCmd(), storeCmd())
	return root
}
