package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
	coremon "github.com/kilianp07/dispatchsim/core/monitoring"
	"github.com/kilianp07/dispatchsim/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	// StateRate caps actor state messages per second; zero disables the cap.
	StateRate  float64     `json:"state_rate"`
	StateBurst int         `json:"state_burst"`
	TLSConfig  *tls.Config `json:"-"`
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dispatchsim"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "dispatchsim"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.StateRate > 0 && c.StateBurst <= 0 {
		c.StateBurst = 1
	}
}

// Validate checks the broker address.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.StateRate < 0 {
		return fmt.Errorf("mqtt: state_rate must be >= 0")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher streams simulation telemetry to an MQTT broker.
// It implements the metrics sink and recorder interfaces.
type Publisher struct {
	cli     pahoClient
	prefix  string
	qos     map[string]byte
	logger  logger.Logger
	limiter *rate.Limiter

	maxRetries int
	backoff    time.Duration
	dropped    atomic.Uint64
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPublisher connects to the MQTT broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &Publisher{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if cfg.StateRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.StateRate), cfg.StateBurst)
	}

	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// ActorTopic is the topic actor snapshots are published on.
func (p *Publisher) ActorTopic(runID string, actor int) string {
	return fmt.Sprintf("%s/%s/actor/%d/state", p.prefix, runID, actor)
}

// TaskTopic is the topic completions are published on.
func (p *Publisher) TaskTopic(runID string) string {
	return fmt.Sprintf("%s/%s/task/serviced", p.prefix, runID)
}

// SummaryTopic is the topic the run summary is published on.
func (p *Publisher) SummaryTopic(runID string) string {
	return fmt.Sprintf("%s/%s/summary", p.prefix, runID)
}

func (p *Publisher) publish(kind, topic string, retained bool, v any, tags map[string]string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	qos := p.qos[kind]
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	if tags == nil {
		tags = map[string]string{}
	}
	tags["module"] = "mqtt"
	tags["topic"] = topic
	coremon.Current().CaptureException(publishErr, tags)
	return publishErr
}

type completionMessage struct {
	TaskID      int     `json:"task_id"`
	Actor       int     `json:"actor"`
	Sector      int     `json:"sector"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Arrival     float64 `json:"arrival"`
	Completion  float64 `json:"completion"`
	Wait        float64 `json:"wait"`
	ServiceTime float64 `json:"service_time"`
}

// RecordCompletion publishes the serviced task.
func (p *Publisher) RecordCompletion(ev coremetrics.CompletionEvent) error {
	msg := completionMessage{
		TaskID: ev.TaskID, Actor: ev.Actor, Sector: ev.Sector,
		X: ev.X, Y: ev.Y,
		Arrival: ev.Arrival, Completion: ev.Completion, Wait: ev.Wait, ServiceTime: ev.ServiceTime,
	}
	return p.publish("task", p.TaskTopic(ev.RunID), false, msg, map[string]string{"run_id": ev.RunID})
}

type actorMessage struct {
	SimTime   float64 `json:"sim_time"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Heading   float64 `json:"heading"`
	Busy      bool    `json:"busy"`
	Queue     int     `json:"queue"`
	Travelled float64 `json:"travelled"`
}

// RecordActorState publishes a retained actor snapshot. Snapshots over the
// configured rate are dropped.
func (p *Publisher) RecordActorState(ev coremetrics.ActorStateEvent) error {
	if p.limiter != nil && !p.limiter.Allow() {
		p.dropped.Add(1)
		return nil
	}
	msg := actorMessage{SimTime: ev.SimTime, X: ev.X, Y: ev.Y, Heading: ev.Heading, Busy: ev.Busy, Queue: ev.Queue, Travelled: ev.Travelled}
	return p.publish("state", p.ActorTopic(ev.RunID, ev.Actor), true, msg, map[string]string{"run_id": ev.RunID})
}

type summaryMessage struct {
	Policy      string  `json:"policy"`
	Rate        float64 `json:"rate"`
	SimTime     float64 `json:"sim_time"`
	Serviced    int     `json:"serviced"`
	AvgWait     float64 `json:"avg_wait"`
	MaxWait     float64 `json:"max_wait"`
	TotalTravel float64 `json:"total_travel"`
	MaxQueue    int     `json:"max_queue"`
	Replans     int     `json:"replans"`
	Rejections  int     `json:"rejections"`
}

// RecordRunSummary publishes the retained run summary.
func (p *Publisher) RecordRunSummary(s coremetrics.RunSummary) error {
	msg := summaryMessage{
		Policy:      s.Policy,
		Rate:        s.Rate,
		SimTime:     s.SimTime,
		Serviced:    s.Serviced,
		AvgWait:     s.AvgWait,
		MaxWait:     s.MaxWait,
		TotalTravel: s.TotalTravel,
		MaxQueue:    s.MaxQueue,
		Replans:     s.Replans,
		Rejections:  s.Rejections,
	}
	return p.publish("summary", p.SummaryTopic(s.RunID), true, msg, map[string]string{"run_id": s.RunID})
}

// Dropped reports the actor snapshots skipped by the rate limiter.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
