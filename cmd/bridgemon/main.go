package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/stats/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/uartbridge/"
)

func init() {
	if val := os.Getenv("UARTBRIDGE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		_, kind, ok := mqtt.SplitTopic(topic)
		switch {
		case !ok:
			log.Printf("%s: %d bytes", topic, len(payload))
		case kind == mqtt.MetaTopic:
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
		case kind == mqtt.StatusTopic:
			msg, err := stats.DecodeStatus(payload)
			if err != nil {
				log.Printf("%s: bad message: %v", topic, err)
				return
			}
			for _, s := range msg.Snapshots() {
				log.Printf("%s: %s bytes=%d writes=%d reads=%d timeouts=%d rerr=%d werr=%d %s",
					topic, s.Name, s.Bytes, s.Writes, s.Reads, s.Timeouts, s.ReadErrors, s.WriteErrors, s.LastError)
			}
		}
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
