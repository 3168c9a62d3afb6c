// Command concentrese runs the LAN Concéntrese server: the TCP game
// endpoint for players and an HTTP monitor endpoint for administration
// and observation.
package main

import (
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"concentrese/db"
	"concentrese/internal/concentrese/game"
	"concentrese/internal/concentrese/monitor"
	"concentrese/internal/concentrese/store"
)

func main() {
	var (
		listenAddr  string
		monitorAddr string
		envFile     string
		delay       time.Duration
		debug       bool
	)
	flag.StringVarP(&listenAddr, "listen", "l", ":5000", "TCP address for the game endpoint")
	flag.StringVarP(&monitorAddr, "monitor", "m", ":8081", "HTTP address for the monitor API")
	flag.StringVar(&envFile, "env", ".env", "Optional .env file with DB settings")
	flag.DurationVar(&delay, "mismatch-delay", game.DefaultMismatchDelay, "How long mismatched cards stay revealed")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(debug)
	defer logger.Sync()

	cfg, err := db.LoadConfig(envFile)
	if err != nil {
		logger.Fatal("configuracion de base de datos", zap.Error(err))
	}
	conn, err := db.Open(cfg)
	if err != nil {
		logger.Fatal("conectando a la base de datos", zap.Error(err))
	}
	defer conn.Close()
	players := store.NewPlayerStore(conn, logger)

	hub := monitor.NewHub(logger)
	go hub.Run()

	coord := game.NewCoordinator(game.Config{
		Logger:        logger,
		Sink:          hub,
		MismatchDelay: delay,
		Shutdown: func() {
			logger.Sync()
			os.Exit(0)
		},
	})

	mon := monitor.NewServer(coord, players, hub, logger)
	go func() {
		if err := mon.ListenAndServe(monitorAddr); err != nil {
			logger.Fatal("monitor fallo", zap.Error(err))
		}
	}()

	listener := game.NewListener(listenAddr, coord, players, logger)
	if err := listener.ListenAndServe(); err != nil {
		logger.Fatal("servidor fallo", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}
