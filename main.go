package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/ine-csv/cmd/datasets"
	"fjacquet/ine-csv/cmd/export"
	"fjacquet/ine-csv/cmd/fetch"
	"fjacquet/ine-csv/cmd/process"
	"fjacquet/ine-csv/cmd/query"
	"fjacquet/ine-csv/cmd/regions"
	"fjacquet/ine-csv/cmd/root"
	"fjacquet/ine-csv/cmd/run"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(fetch.Cmd)
	root.Cmd.AddCommand(process.Cmd)
	root.Cmd.AddCommand(run.Cmd)
	root.Cmd.AddCommand(datasets.Cmd)
	root.Cmd.AddCommand(regions.Cmd)
	root.Cmd.AddCommand(query.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.Cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
