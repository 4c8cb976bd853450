package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"cafe/common"
	"cafe/http"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "conf", Value: DEFAULT_CONF, Usage: "conf file path, yaml or toml"},
		&cli.StringFlag{Name: "host", Usage: "address to bind"},
		&cli.IntFlag{Name: "port", Usage: "port to listen on"},
		&cli.StringSliceFlag{Name: "include", Usage: "menu include patterns, ':' separated"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "menu exclude patterns, ':' separated"},
		&cli.BoolFlag{Name: "broadcast-version", Usage: "send the Cafe-Version header"},
		&cli.BoolFlag{Name: "debug-response-headers", Usage: "send the Cafe-Failure-Reason header"},
		&cli.IntFlag{Name: "retry", Usage: "extra listen attempts when the port is taken, -1 for unlimited"},
		&cli.BoolFlag{Name: "incremental", Usage: "try the next port on each retry"},
	}
}

func patterns(values []string) []string {
	items := make([]string, 0)
	for _, v := range values {
		items = append(items, common.SplitPatterns(v)...)
	}
	return items
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cmd *cli.Command, conf *common.Config) error {
	if cmd.IsSet("host") {
		conf.Common.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		conf.Common.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("include") {
		conf.Cafe.Menu.Include = patterns(cmd.StringSlice("include"))
	}
	if cmd.IsSet("exclude") {
		conf.Cafe.Menu.Exclude = patterns(cmd.StringSlice("exclude"))
	}
	if cmd.IsSet("broadcast-version") {
		conf.Cafe.BroadcastVersion = cmd.Bool("broadcast-version")
	}
	if cmd.IsSet("debug-response-headers") {
		conf.Cafe.DebugResponseHeaders = cmd.Bool("debug-response-headers")
	}
	if cmd.IsSet("retry") {
		conf.Common.Retry.Count = int(cmd.Int("retry"))
	}
	if cmd.IsSet("incremental") {
		conf.Common.Retry.Incremental = cmd.Bool("incremental")
	}
	if cmd.Args().Present() {
		conf.Cafe.BasePath = cmd.Args().First()
	}
	return conf.Cafe.Canonicalize()
}

func run(ctx context.Context, cmd *cli.Command) error {
	conf, err := common.LoadConf(cmd.String("conf"))
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, conf); err != nil {
		return err
	}

	log, err := common.InitLog(conf.Log)
	if err != nil {
		return err
	}

	var access *common.HourlyLogger
	if conf.Log.Access != "" {
		if access, err = common.NewHourlyLogger(conf.Log.Access, log); err != nil {
			return err
		}
	}

	interval, err := conf.Common.Retry.Duration()
	if err != nil {
		return err
	}

	svr, err := http.NewCafeServer(conf, http.Options{Version: VERSION, Logger: log, Access: access})
	if err != nil {
		return err
	}

	result, err := svr.Listen(ctx, conf.Common.Port, http.ListenOptions{
		Host:          conf.Common.Host,
		RetryCount:    conf.Common.Retry.Count,
		RetryInterval: interval,
		Incremental:   conf.Common.Retry.Incremental,
	})
	if err != nil {
		access.Close()
		return err
	}

	log.Info().
		Str("name", conf.Common.Name).
		Str("version", VERSION).
		Str("base_path", conf.Cafe.BasePath).
		Strs("include", conf.Cafe.Menu.Include).
		Strs("exclude", conf.Cafe.Menu.Exclude).
		Str("chunk_size", humanize.IBytes(uint64(conf.Cafe.ChunkBytes))).
		Int("port", result.Port).
		Msg("conf")

	HandleSignal(svr, access, log)
	return nil
}

func main() {
	app := &cli.Command{
		Name:      "cafe",
		Usage:     "serve a directory over HTTP with byte range support",
		Version:   VERSION,
		ArgsUsage: "[base_path]",
		Flags:     flags(),
		Action:    run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
