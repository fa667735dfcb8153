package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/adcopysurge/backend/internal/app"
	"github.com/adcopysurge/backend/internal/config"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: adcopysurge [command] [flags]

commands:
  serve          run the HTTP API (default)
  migrate        create or update the database schema
  reset-credits  run one monthly credit reset pass
  init           write a starter config file`

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		if errors.Is(errRun, flag.ErrHelp) {
			return
		}
		log.WithError(errRun).Error("command failed")
		stop()
		os.Exit(1)
	}
}

// run dispatches the subcommand after parsing its flags.
func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), usage)
		fs.PrintDefaults()
	}
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port; overrides the config file")
	var initReq app.InitRequest
	if command == "init" {
		fs.StringVar(&initReq.DatabaseType, "db-type", "sqlite", "database type: sqlite or postgres")
		fs.StringVar(&initReq.DatabasePath, "db-path", "", "sqlite database file")
		fs.StringVar(&initReq.DatabaseHost, "db-host", "", "postgres host")
		fs.IntVar(&initReq.DatabasePort, "db-port", 5432, "postgres port")
		fs.StringVar(&initReq.DatabaseUser, "db-user", "", "postgres user")
		fs.StringVar(&initReq.DatabasePassword, "db-password", "", "postgres password")
		fs.StringVar(&initReq.DatabaseName, "db-name", "", "postgres database name")
		fs.StringVar(&initReq.DatabaseSSLMode, "db-sslmode", "disable", "postgres sslmode")
		fs.StringVar(&initReq.OpenAIAPIKey, "openai-key", "", "openai api key for alternative generation")
	}
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}

	switch command {
	case "serve":
		return app.RunServer(ctx, appCfg, *port)
	case "migrate":
		if errMigrate := app.Migrate(ctx, appCfg); errMigrate != nil {
			return errMigrate
		}
		log.Info("migration complete")
		return nil
	case "reset-credits":
		n, errReset := app.ResetCredits(ctx, appCfg)
		log.Infof("reset %d credit accounts", n)
		return errReset
	case "init":
		initReq.Port = *port
		token, errInit := app.InitConfig(appCfg.ConfigPath, initReq)
		if errInit != nil {
			return errInit
		}
		fmt.Printf("admin token: %s\n", token)
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
