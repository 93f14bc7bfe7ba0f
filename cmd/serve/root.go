package serve

import (
	"errors"
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/ValentinKolb/climastro/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

const (
	DefaultAggregatorPort = 24000
	DefaultWeatherPort    = 24001
	DefaultHoroscopePort  = 24002
	DefaultEchoPort       = 24000
)

var (
	Logger = logger.GetLogger("cmd")

	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start a climastro service",
		Long:  `Start one of the climastro services. The configuration can be set via command line flags or environment variables. The format of the environment variables is CLIMASTRO_<flag> (e.g. CLIMASTRO_MAX_WORKERS=4)`,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add subcommands
	ServeCmd.AddCommand(echoCmd)
	ServeCmd.AddCommand(weatherCmd)
	ServeCmd.AddCommand(horoscopeCmd)
	ServeCmd.AddCommand(aggregatorCmd)
}

// bindFlags binds the flags of the executed command to viper
func bindFlags(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

// runService serves service until SIGINT or SIGTERM
func runService(service server.IService) error {
	config := util.GetServerConfig()
	s := server.NewServiceServer(config, service)

	if config.MetricsEndpoint != "" {
		go serveMetrics(config.MetricsEndpoint)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case err := <-errCh:
		return err
	case <-sig:
		Logger.Infof("Shutting down %s service", service.Name())
	}

	shutdownErr := s.Shutdown(true)
	if stats, ok := s.PoolStats(); ok {
		Logger.Infof("%s", stats)
	}
	return errors.Join(shutdownErr, <-errCh)
}

// serveMetrics exposes all metrics in the Prometheus text format at /metrics
func serveMetrics(endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		Logger.Errorf("Metrics endpoint failed: %v", err)
	}
}

// moodsFile returns the configured moods file
func moodsFile() string {
	return viper.GetString("moods-file")
}
