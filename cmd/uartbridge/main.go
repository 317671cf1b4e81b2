package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/uartbridge/pkg/bridge"
	fx "github.com/robotalks/uartbridge/pkg/framework"
	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/stats/mqtt"
	wsstats "github.com/robotalks/uartbridge/pkg/stats/websocket"
)

func init() {
	bridge.SetupFlags()
}

func newReportLoop(conf *bridge.Config, b *bridge.Bridge) (*fx.Loop, error) {
	var pubs []stats.Publisher
	if conf.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(conf.MQTTBrokerURL, conf.ID, b.Meta())
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	if conf.StatusAddr != "" {
		pubs = append(pubs, wsstats.NewPublisher(conf.StatusAddr))
	}
	loop := fx.NewLoop()
	loop.Interval = conf.ReportInterval
	return loop.Add(stats.NewReporter(conf.ID, b.Registry, pubs...)), nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := bridge.NewConfig().MustValidate()
	if conf.ID == "" {
		conf.ID = bridge.MachineID()
	}
	b := bridge.MustNewBridge(conf)

	runner := fx.NewRunner().HandleSignals()
	b.MustStart(runner.Context)
	runner.Go(fx.NamedRun("pumps", fx.RunFunc(func(context.Context) error {
		return b.Wait()
	})))
	if conf.ReportEnabled() {
		loop, err := newReportLoop(conf, b)
		if err != nil {
			glog.Fatalf("status report: %v", err)
		}
		runner.Go(fx.NamedRun("report", fx.RunFunc(func(ctx context.Context) error {
			err := loop.Run(ctx)
			if ctx.Err() == nil {
				runner.Cancel()
			}
			return err
		})))
	}

	err := runner.Wait()
	if cerr := b.Close(); cerr != nil {
		glog.Warningf("close: %v", cerr)
	}
	if err != nil {
		glog.Exitf("stopped: %v", err)
	}
	glog.Info("stopped")
}
