package serve

import (
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/client"
	"github.com/ValentinKolb/climastro/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"time"
)

var (
	echoCmd = &cobra.Command{
		Use:     "echo",
		Short:   "Start the echo service",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(server.NewEchoService())
		},
	}
	weatherCmd = &cobra.Command{
		Use:     "weather",
		Short:   "Start the weather service (binary protocol)",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := server.NewWeatherTable()
			if err != nil {
				return err
			}
			gen := forecast.NewGenerator(forecast.DefaultMoods)
			return runService(server.NewWeatherService(gen, table))
		},
	}
	horoscopeCmd = &cobra.Command{
		Use:     "horoscope",
		Short:   "Start the horoscope service (JSON protocol)",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			moods, err := forecast.LoadMoods(moodsFile())
			if err != nil {
				return err
			}
			grid, err := server.NewHoroscopeGrid()
			if err != nil {
				return err
			}
			gen := forecast.NewGenerator(moods)
			return runService(server.NewHoroscopeService(gen, grid))
		},
	}
	aggregatorCmd = &cobra.Command{
		Use:     "aggregator",
		Short:   "Start the aggregator service in front of the weather and horoscope services",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			weatherConfig := util.GetClientConfig("weather-")
			if err := weatherConfig.Validate(); err != nil {
				return err
			}
			horoscopeConfig := util.GetClientConfig("horoscope-")
			if err := horoscopeConfig.Validate(); err != nil {
				return err
			}

			Logger.Infof("Weather backend: %s", weatherConfig.Endpoint())
			Logger.Infof("Horoscope backend: %s", horoscopeConfig.Endpoint())

			return runService(server.NewAggregatorService(
				client.NewWeatherClient(weatherConfig),
				client.NewHoroscopeClient(horoscopeConfig),
				time.Duration(viper.GetInt("backend-wait"))*time.Second,
			))
		},
	}
)

func init() {
	util.SetupServerFlags(echoCmd, DefaultEchoPort)
	util.SetupServerFlags(weatherCmd, DefaultWeatherPort)
	util.SetupServerFlags(horoscopeCmd, DefaultHoroscopePort)
	util.SetupServerFlags(aggregatorCmd, DefaultAggregatorPort)

	key := "moods-file"
	horoscopeCmd.Flags().String(key, "", util.WrapString("File with one mood line per sign (aries first), the built-in moods are used if empty"))

	util.SetupClientFlags(aggregatorCmd, "weather-", DefaultWeatherPort)
	util.SetupClientFlags(aggregatorCmd, "horoscope-", DefaultHoroscopePort)

	key = "backend-wait"
	aggregatorCmd.Flags().Int(key, 10, util.WrapString("Seconds to wait for the backends before answering with null"))
}
