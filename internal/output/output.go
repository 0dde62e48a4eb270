package output

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/mealplanner/internal/cloudwriter"
	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/output/producers"
)

// Destination receives serialized events by topic.
type Destination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// PlanWriter exports solved plans.
type PlanWriter interface {
	WritePlan(plan *models.Plan) error
	Close() error
}

// Publisher turns a plan into one plan_entry event per filled slot plus one
// plan_summary event and hands them to a Destination.
type Publisher struct {
	dest        Destination
	topicPrefix string
}

func NewPublisher(dest Destination, topicPrefix string) *Publisher {
	return &Publisher{dest: dest, topicPrefix: topicPrefix}
}

func (p *Publisher) topic(name string) string {
	if p.topicPrefix == "" {
		return name
	}
	return fmt.Sprintf("%s_%s", p.topicPrefix, name)
}

func (p *Publisher) WritePlan(plan *models.Plan) error {
	entries := entryEvents(plan)
	for _, e := range entries {
		msg, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("error marshalling plan entry: %w", err)
		}
		if err := p.dest.WriteMessage(p.topic(models.TopicPlanEntries), msg); err != nil {
			return fmt.Errorf("error writing plan entry for day %d %s: %w", e.Day, e.MealType, err)
		}
	}

	msg, err := json.Marshal(summaryEvent(plan))
	if err != nil {
		return fmt.Errorf("error marshalling plan summary: %w", err)
	}
	if err := p.dest.WriteMessage(p.topic(models.TopicPlanSummaries), msg); err != nil {
		return fmt.Errorf("error writing plan summary: %w", err)
	}

	log.Printf("Plan %s exported: %d entries", plan.ID, len(entries))
	return nil
}

func (p *Publisher) Close() error {
	return p.dest.Close()
}

// NewPlanWriter picks the destination from the configuration: Kafka when
// enabled, otherwise the configured output format.
func NewPlanWriter(config *models.Config) (PlanWriter, error) {
	dest, err := NewDestination(config)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if config.Kafka.Enabled {
		prefix = config.Kafka.TopicPrefix
	}
	return NewPublisher(dest, prefix), nil
}

func NewDestination(config *models.Config) (Destination, error) {
	if config.Kafka.Enabled {
		producer, err := producers.NewSaramaProducer(config.Kafka)
		if err != nil {
			return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
		}
		log.Printf("Exporting plans to Kafka brokers %s", config.Kafka.BrokerList)
		return producer, nil
	}

	out := config.Output
	switch out.Format {
	case models.OutputFormatParquet:
		var factory cloudwriter.CloudWriterFactory
		if out.Destination == models.DestinationCloud {
			var err error
			factory, err = newCloudWriterFactory(config.CloudStorage)
			if err != nil {
				return nil, err
			}
			log.Printf("Exporting plans as parquet to %s bucket %s", config.CloudStorage.Provider, config.CloudStorage.BucketName)
		} else {
			log.Printf("Exporting plans as parquet to %s", out.Path)
		}
		return NewParquetOutput(out.Path, out.Folder, factory, config.CloudStorage.BucketName), nil
	case models.OutputFormatJSON:
		log.Printf("Exporting plans as json to %s", out.Path)
		return NewJSONOutput(out.Path, out.Folder), nil
	case models.OutputFormatCSV:
		log.Printf("Exporting plans as csv to %s", out.Path)
		return NewCSVOutput(out.Path, out.Folder), nil
	case models.OutputFormatConsole, "":
		return NewConsoleOutput(nil), nil
	}
	return nil, fmt.Errorf("unsupported output format: %s", out.Format)
}

func newCloudWriterFactory(cfg models.CloudStorageConfig) (cloudwriter.CloudWriterFactory, error) {
	switch cfg.Provider {
	case "s3":
		factory, err := cloudwriter.NewS3WriterFactory(cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}
		return factory, nil
	}
	return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.Provider)
}

// partition returns the hive style path for an event timestamp.
func partition(msg []byte) (string, error) {
	var head struct {
		Timestamp *int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return "", err
	}
	if head.Timestamp == nil {
		return "", fmt.Errorf("invalid timestamp")
	}
	t := time.Unix(*head.Timestamp, 0).UTC()
	year, month, day := t.Date()
	return fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d", year, month, day, t.Hour()), nil
}
