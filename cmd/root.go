package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strandkv/strand/cmd/serve"
	"github.com/strandkv/strand/cmd/str"
	cmdUtil "github.com/strandkv/strand/cmd/util"
)

// Version is the current version of strand
const Version = "0.3.1"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "strand",
		Short: "strand is a pipelined string key-value store",
		Long: cmdUtil.WrapString(
			`strand is a key-value store for string and bitstring values. It ships a server hosting one or more databases behind pluggable transports and a client exposing the full command set, including pipelined batch execution.`,
		),
		Version: Version,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of strand",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strand version %s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(str.StringCommands)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", cmdUtil.WrapString("The serializer to use (json, gob, binary)"))

	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", cmdUtil.WrapString("The transport to use (http, tcp, unix, kcp)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
