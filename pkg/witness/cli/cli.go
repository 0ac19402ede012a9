// Package cli implements the three binaries' Main() entry points:
// eve_build (seal canonical timeseries datasets), eve_query (answer a
// provenance-carrying query over sealed data), and eve_golden (replay
// and verify every invariant §8 names). Each mirrors the teacher's
// `pkg/api/cli` convention of one kingpin.Application plus a slog
// logger wired through promslog/flag, but logs through the newer
// promslog/slog pair rather than the teacher's older go-kit/log.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/promslog"
	promslogflag "github.com/prometheus/common/promslog/flag"
	"github.com/prometheus/common/version"

	"github.com/elekto-energy/eve-witness/internal/common"
	internal_runtime "github.com/elekto-energy/eve-witness/internal/runtime"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// newApp builds a kingpin.Application wired with promslog flags and
// version/build metadata, the shared boilerplate every eve_* binary
// performs before parsing its own flags.
func newApp(name, help string) (*kingpin.Application, *promslog.Config) {
	app := kingpin.New(name, help).UsageWriter(os.Stdout)
	app.Version(version.Print(name))
	app.HelpFlag.Short('h')

	promslogConfig := &promslog.Config{}
	promslogflag.AddFlags(app, promslogConfig)

	return app, promslogConfig
}

// startupLog emits the teacher's standard startup banner: version,
// build context, host/runtime info, and a per-invocation run id
// attached to every subsequent log line. The run id is a logging aid
// only; it never enters a hashed payload.
func startupLog(logger *slog.Logger, name string) string {
	runID := common.NewRunID()
	*logger = *logger.With("run_id", runID)

	logger.Info("starting "+name, "version", version.Info())
	logger.Info(
		"operational information", "build_context", version.BuildContext(),
		"host_details", internal_runtime.Uname(), "fd_limits", internal_runtime.FdLimits(),
		"goroutines_max_procs", runtime.GOMAXPROCS(0),
	)

	return runID
}

func fail(logger *slog.Logger, msg string, err error) int {
	if logger != nil {
		logger.Error(msg, "err", err)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	}

	return exitFailure
}
