package alpaca

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucket          = "alpaca"
	defaultMQTTHost = "localhost"
	defaultMQTTPort = 1883
	defaultTopic    = "alpaca"

	mqttConfigKey = "mqtt_config"
)

// ErrKeyNotFound is returned by Get when nothing is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TopicRoot string
}

// BrokerURL is the broker address in the form expected by the MQTT client.
func (c MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Store persists settings as JSON values in a bbolt bucket.
type Store struct {
	db *bolt.DB
}

func NewStore(db *bolt.DB) (*Store, error) {
	st := Store{db: db}

	if err := st.setDefaults(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) setDefaults() error {
	if _, err := s.GetMQTTConfig(); err != nil {
		log.Infof("Setting default MQTT config")
		return s.SetMQTTConfig(MQTTConfig{
			Host:      defaultMQTTHost,
			Port:      defaultMQTTPort,
			TopicRoot: defaultTopic,
		})
	}
	return nil
}

// Put saves v as JSON under key.
func (s *Store) Put(key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Get loads the JSON value stored under key into v.
func (s *Store) Get(key string, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrKeyNotFound
		}

		value := b.Get([]byte(key))
		if value == nil {
			return ErrKeyNotFound
		}
		return json.Unmarshal(value, v)
	})
}

// SetMQTTConfig validates and saves the telemetry broker settings.
func (s *Store) SetMQTTConfig(cfg MQTTConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.TopicRoot == "" {
		cfg.TopicRoot = defaultTopic
	}
	return s.Put(mqttConfigKey, cfg)
}

func (s *Store) GetMQTTConfig() (MQTTConfig, error) {
	var cfg MQTTConfig
	err := s.Get(mqttConfigKey, &cfg)
	return cfg, err
}
