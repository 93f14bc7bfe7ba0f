package cmd

import (
	"fmt"
	"github.com/ValentinKolb/climastro/cmd/query"
	"github.com/ValentinKolb/climastro/cmd/serve"
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "climastro",
		Short: "weather and horoscope services over TCP",
		Long: fmt.Sprintf(`climastro (v%s)

A small set of TCP services (echo, weather, horoscope and an aggregator
in front of both) built on a pooled connection dispatcher.`, Version),
		PersistentPreRunE: initLogging,
		SilenceUsage:      true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of climastro",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("climastro v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(query.QueryCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error), optionally followed by per logger overrides such as \"info,transport=debug\""))
}

// initLogging installs the application logger at the configured level
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlag("log-level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
