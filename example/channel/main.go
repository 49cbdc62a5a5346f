package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/plcbridge"
)

func main() {
	flow, err := plcbridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, readings, closeReadings := plcbridge.NewChannelSink("fanout", 32)
	defer closeReadings()

	go fanoutWorker("alarms", readings)

	if err := flow.Into(sink).Run(ctx); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}

func fanoutWorker(name string, readings <-chan plcbridge.Reading) {
	last := make(map[string]string)
	for r := range readings {
		key := r.Source + "/" + r.Node
		if prev, ok := last[key]; ok && prev != r.Value {
			fmt.Printf("[%s] %s changed %s -> %s at %s\n", name, key, prev, r.Value, r.Timestamp.Format("15:04:05"))
		}
		last[key] = r.Value
	}
}
