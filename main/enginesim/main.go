package main

import (
	"context"
	"github.com/jd3nn1s/enginesim/main/enginesim/cmd"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-quitChan
		log.Infof("got %v, exiting", s)
		cancel()
		// the adapter must be released, give up if that hangs
		<-time.After(10 * time.Second)
		log.Fatal("took too long to shut down, forcefully exiting")
	}()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
