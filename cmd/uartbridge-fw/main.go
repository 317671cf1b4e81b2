//go:build tinygo

// Command uartbridge-fw is the microcontroller build of the bridge: no flags,
// no status reporting, platform defaults only.
package main

import (
	"context"

	"github.com/robotalks/uartbridge/pkg/bridge"
)

func main() {
	conf := bridge.NewConfig().MustValidate()
	b := bridge.MustNewBridge(conf)
	b.MustStart(context.Background())
	b.Wait()
}
