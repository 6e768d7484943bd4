package kafka

import (
	"fmt"

	"github.com/IBM/sarama"

	"viaduct/internal/spec"
	"viaduct/sink"
	src "viaduct/source/kafka"
)

// driver re-publishes drained records with an async producer, for mirroring
// the bridged stream into another topic or cluster.
type driver struct {
	cfg spec.KafkaSinkSpec
	p   sarama.AsyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(spec.KafkaSinkSpec)
	if !ok {
		return fmt.Errorf("kafka-sink: expected KafkaSinkSpec, got %T", c)
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	var err error
	d.p, err = sarama.NewAsyncProducer(cfg.Brokers, sc)
	return err
}

func (d *driver) Push(rec src.Record) error {
	topic := d.cfg.Topic
	if topic == "" {
		topic = rec.Topic
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(rec.Key),
		Value: sarama.ByteEncoder(rec.Value),
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	return d.p.Close()
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
