package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/plcbridge/pkg/plcbridge"
)

func main() {
	flow, err := plcbridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	show := func(r plcbridge.Reading) error {
		fmt.Printf("%s %s/%s = %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Source, r.Node, r.Value)
		return nil
	}

	if err := flow.IntoFunc("stdout", show).Run(ctx); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
