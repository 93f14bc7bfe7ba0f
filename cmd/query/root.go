package query

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/spf13/cobra"
)

const (
	defaultAggregatorPort = 24000
	defaultWeatherPort    = 24001
	defaultHoroscopePort  = 24002
	defaultEchoPort       = 24000
)

var (
	// QueryCommands represents the client command group
	QueryCommands = &cobra.Command{
		Use:   "query",
		Short: "Query a running climastro service",
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	for cmd, port := range map[*cobra.Command]int{
		echoCmd:      defaultEchoPort,
		weatherCmd:   defaultWeatherPort,
		horoscopeCmd: defaultHoroscopePort,
		aggregateCmd: defaultAggregatorPort,
		perfCmd:      defaultAggregatorPort,
	} {
		util.SetupClientFlags(cmd, "", port)
		util.SetupConnectionFlags(cmd)
		cmd.PreRunE = bindFlags
		QueryCommands.AddCommand(cmd)
	}
}

// bindFlags binds the flags of the executed command to viper
func bindFlags(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

// printJSON prints v indented
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
