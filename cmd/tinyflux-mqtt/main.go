// Package main implements the tinyflux-mqtt ingestion daemon: it
// subscribes to an MQTT topic, decodes each message as JSON tags/fields,
// and inserts a point into a TinyFlux database per message.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tinyflux/tinyflux"
	"github.com/tinyflux/tinyflux/internal/config"
	"github.com/tinyflux/tinyflux/internal/server"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to a YAML or JSON config file")
	brokerURL := flag.String("broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	topic := flag.String("topic", "", "MQTT topic filter to subscribe to")
	flag.Parse()

	cfg, err := loadConfig(configFile, *brokerURL, *topic)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := tinyflux.Open(cfg.Storage.Path, tinyflux.Config{
		AutoIndex:   cfg.Engine.AutoIndex,
		CompactKeys: cfg.Engine.CompactKeys,
	})
	if err != nil {
		log.Fatalf("failed to open database at %s: %v", cfg.Storage.Path, err)
	}

	shutdownMgr := server.NewShutdownManager(server.DefaultShutdownConfig())
	shutdownMgr.RegisterCloser(db)

	ingestor := &ingestor{db: db, measurement: cfg.MQTT.Measurement, shutdown: shutdownMgr}

	clientID := fmt.Sprintf("%s-%s", cfg.MQTT.ClientIDPrefix, uuid.NewString())
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL).
		SetClientID(clientID).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Printf("connected to %s", cfg.MQTT.BrokerURL)
			if token := c.Subscribe(cfg.MQTT.Topic, cfg.MQTT.QoS, ingestor.onMessage); token.Wait() && token.Error() != nil {
				log.Printf("subscribe failed: %v", token.Error())
				return
			}
			log.Printf("subscribed to %q, waiting for messages", cfg.MQTT.Topic)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.MQTT.BrokerURL, token.Error())
	}

	shutdownMgr.RegisterCloser(server.CloserFunc(func() error {
		client.Disconnect(250)
		return nil
	}))

	if err := shutdownMgr.ListenForSignals(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Printf("tinyflux-mqtt stopped")
}

func loadConfig(configFile, brokerURL, topic string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg, ".env")

	if brokerURL != "" {
		cfg.MQTT.BrokerURL = brokerURL
	}
	if topic != "" {
		cfg.MQTT.Topic = topic
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ingestor decodes each MQTT message as a flat JSON object whose
// string-valued keys become tags and whose numeric and boolean keys become
// fields; nested objects, arrays and nulls are skipped.
type ingestor struct {
	db          *tinyflux.DB
	measurement string
	shutdown    *server.ShutdownManager
}

func (g *ingestor) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if !g.shutdown.TrackWork() {
		log.Printf("discarding message on %q: shutting down", msg.Topic())
		return
	}
	defer g.shutdown.UntrackWork()

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("discarding message on %q: invalid json: %v", msg.Topic(), err)
		return
	}

	tags := tinyflux.TagSet{}
	fields := tinyflux.FieldSet{}
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			tags[k] = val
		case float64:
			fields[k] = val
		case bool:
			fields[k] = val
		default:
			// Nested objects/arrays have no place in a flat tag/field
			// model; skip them rather than guessing a representation.
		}
	}

	measurement := g.measurement
	if measurement == "" {
		measurement = msg.Topic()
	}

	p, err := tinyflux.NewPoint(time.Now(), true, measurement, tags, fields)
	if err != nil {
		log.Printf("discarding message on %q: %v", msg.Topic(), err)
		return
	}
	if _, err := g.db.Insert(p); err != nil {
		log.Printf("insert failed for message on %q: %v", msg.Topic(), err)
		return
	}
}
