package query

import (
	"fmt"
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/client"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/spf13/cobra"
	"time"
)

var (
	echoCmd = &cobra.Command{
		Use:   "echo [message...]",
		Short: "Sends every message to the echo service and prints the replies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replies, err := client.NewEchoClient(util.GetClientConfig("")).Echo(args...)
			if err != nil {
				return err
			}
			for _, reply := range replies {
				fmt.Println(reply)
			}
			return nil
		},
	}
	weatherCmd = &cobra.Command{
		Use:   "weather [date]",
		Short: "Gets the forecast for a date (YYYY-MM-DD, default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			info, err := client.NewWeatherClient(util.GetClientConfig("")).Get(common.NewDate(date))
			if err != nil {
				return err
			}
			if info.IsZero() {
				return fmt.Errorf("no forecast for %s", date.Format(forecast.DateLayout))
			}
			fmt.Println(info.Weather())
			return nil
		},
	}
	horoscopeCmd = &cobra.Command{
		Use:   "horoscope [sign] [date]",
		Short: "Gets the horoscope of a sign for a date (YYYY-MM-DD, default today)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := client.NewHoroscopeClient(util.GetClientConfig("")).Get(queryArgs(args))
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
	aggregateCmd = &cobra.Command{
		Use:   "aggregate [sign] [date]",
		Short: "Gets forecast and horoscope for a date (YYYY-MM-DD, default today) from the aggregator",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := client.NewAggregateClient(util.GetClientConfig("")).Get(queryArgs(args))
			if err != nil {
				return err
			}
			return printJSON(reply)
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// dateArg parses the optional date argument
func dateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return time.Now(), nil
	}
	return forecast.ParseDate(args[0])
}

// queryArgs builds a query from [sign] [date]. The date is passed through unchecked so
// the service decides whether it is valid.
func queryArgs(args []string) common.Query {
	query := common.Query{Sign: args[0], Date: time.Now().Format(forecast.DateLayout)}
	if len(args) > 1 {
		query.Date = args[1]
	}
	return query
}
