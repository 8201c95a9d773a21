// Command dynminer is the reference miner for Dynamo-style chains, where the
// proof-of-work hash function is delivered per-job as a textual program.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dynamocoin/go-dynminer/internal/console"
	"github.com/dynamocoin/go-dynminer/internal/gpu"
	"github.com/dynamocoin/go-dynminer/internal/metrics"
	"github.com/dynamocoin/go-dynminer/internal/miner"
	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/stratum"
	"github.com/dynamocoin/go-dynminer/internal/work"

	flags "github.com/jessevdk/go-flags"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

const version = "1.0.0"

// metricsAddr is the fixed local listener for the prometheus endpoint.
const metricsAddr = "127.0.0.1:9090"

type options struct {
	Args struct {
		Host          string `positional-arg-name:"host"`
		Port          int    `positional-arg-name:"port"`
		User          string `positional-arg-name:"user"`
		Password      string `positional-arg-name:"password"`
		Mode          string `positional-arg-name:"CPU|GPU"`
		NumWorkers    int    `positional-arg-name:"num-workers"`
		PlatformID    int    `positional-arg-name:"platform-id"`
		LocalWorkSize int    `positional-arg-name:"local-work-size"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("*******************************************************************")
	fmt.Println("Dynamo coin reference miner. Supplied with no warranty and solely")
	fmt.Println("on an AS-IS basis.")
	fmt.Println()
	fmt.Printf("Version %s\n", version)
	fmt.Println("*******************************************************************")

	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "<host> <port> <user> <password> <CPU|GPU> <num-workers> <platform-id> <local-work-size>"
	if _, err := parser.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var gpuMode bool
	switch strings.ToUpper(opts.Args.Mode) {
	case "CPU":
		gpuMode = false
	case "GPU":
		gpuMode = true
	default:
		fmt.Fprintln(os.Stderr, "miner type must be CPU or GPU")
		return 1
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shared := &work.Shared{}
	queue := shares.NewQueue()
	seed := miner.NewSeed()

	logical, _ := cpu.Counts(true)
	physical, _ := cpu.Counts(false)
	logger.Info("detected CPUs",
		zap.Int("logical", logical),
		zap.Int("physical", physical),
	)

	if gpuMode {
		devices, err := gpu.Enumerate(opts.Args.PlatformID, opts.Args.NumWorkers, opts.Args.LocalWorkSize)
		if err != nil {
			logger.Error("GPU enumeration failed", zap.Error(err))
			return 1
		}
		if len(devices) == 0 {
			if gpu.Available() {
				logger.Error("no GPU devices detected")
			} else {
				logger.Error("not built with GPU support")
			}
			return 1
		}
		logger.Info("starting GPU mining",
			zap.Int("devices", len(devices)),
			zap.Int("compute_units", opts.Args.NumWorkers),
		)
		for i, dev := range devices {
			go gpu.NewRunner(dev, i, shared, queue, seed, logger).Run(ctx)
		}
	} else {
		if opts.Args.NumWorkers < 1 {
			fmt.Fprintln(os.Stderr, "num-workers must be at least 1")
			return 1
		}
		if logical > 0 && opts.Args.NumWorkers > logical {
			logger.Warn("worker count exceeds logical CPUs",
				zap.Int("workers", opts.Args.NumWorkers),
				zap.Int("logical", logical),
			)
		}
		logger.Info("starting CPU mining", zap.Int("workers", opts.Args.NumWorkers))
		for i := 0; i < opts.Args.NumWorkers; i++ {
			go miner.NewWorker(i, shared, queue, seed, logger).Run(ctx)
		}
	}

	go console.NewReporter(version, shared, &queue.Stats, os.Stdout).Run(ctx)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Warn("metrics endpoint unavailable", zap.Error(err))
		}
	}()

	client := stratum.NewClient(stratum.Config{
		Host:     opts.Args.Host,
		Port:     opts.Args.Port,
		User:     opts.Args.User,
		Password: opts.Args.Password,
	}, shared, queue, logger)
	client.Run(ctx)

	return 0
}
