package rmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/types"
)

type Config struct {
	Enabled    bool   `envconfig:"SOAR_RMQ_ENABLED" default:"false"`
	Host       string `envconfig:"SOAR_RMQ_HOST" default:"localhost"`
	Port       string `envconfig:"SOAR_RMQ_PORT" default:"5672"`
	Username   string `envconfig:"SOAR_RMQ_USERNAME" default:"guest"`
	Password   string `envconfig:"SOAR_RMQ_PASSWORD" default:"guest"`
	Exchange   string `envconfig:"SOAR_RMQ_EXCHANGE" default:"soar-jobs"`
	RoutingKey string `envconfig:"SOAR_RMQ_ROUTING_KEY" default:"soar.job.finished"`
}

// publisher is the part of *amqp.Channel the notifier needs.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Notifier publishes job summaries. The zero value only logs.
type Notifier struct {
	channel publisher
	conn    *amqp.Connection
	config  Config
	log     zerolog.Logger
}

func ReadEnvironment() (Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	return config, err
}

func NewNotifier(config Config) (*Notifier, error) {
	log := logger.NewLogger("RMQ notifier")
	if !config.Enabled {
		return &Notifier{config: config, log: log}, nil
	}

	conn, ch, err := setup(getURL(config))
	if err != nil {
		log.Error().Err(err).Str("host", config.Host).Msg("Could not connect to broker")
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	return &Notifier{channel: ch, conn: conn, config: config, log: log}, nil
}

// Notify publishes summary. Failures are logged and swallowed since the job
// output is already persisted.
func (n *Notifier) Notify(ctx context.Context, summary types.JobSummary) {
	log := n.log.With().Str("job", summary.Job).Str("run_id", summary.RunID).Logger()
	if n.channel == nil {
		log.Info().Str("output", summary.Output).Int("count", summary.Count).Msg("Job finished")
		return
	}
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("Skipping notification")
		return
	}

	body, err := json.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Msg("Could not encode job summary")
		return
	}
	err = n.channel.Publish(
		n.config.Exchange,
		n.config.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: summary.RunID,
			Type:          summary.Job,
			Body:          body,
		})
	if err != nil {
		log.Error().Err(err).Msg("Could not publish job summary")
		return
	}
	log.Debug().Msg("Published job summary")
}

func (n *Notifier) Close() {
	if n.conn != nil {
		_ = n.conn.Close()
	}
}

func getURL(config Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
