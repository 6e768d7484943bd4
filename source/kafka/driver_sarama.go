package kafka

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"viaduct/internal/logging"
)

// pollBatchMax caps how many records a single Poll hands back.
const pollBatchMax = 500

// SaramaClient implements Client on sarama's low-level consumer. Each
// assigned partition gets an explicit PartitionConsumer whose messages fan
// into a single channel Poll selects on; committed offsets go through the
// consumer group's offset manager when a group id is configured.
type SaramaClient struct {
	cfg  ClientConfig
	cl   sarama.Client
	cons sarama.Consumer
	om   sarama.OffsetManager

	mu       sync.Mutex
	parts    map[TopicPartition]*partitionStream
	poms     map[TopicPartition]sarama.PartitionOffsetManager
	unplaced map[TopicPartition]struct{}
	closed   bool

	msgs chan *sarama.ConsumerMessage
	wake chan struct{}
	done chan struct{}
}

type partitionStream struct {
	pc   sarama.PartitionConsumer
	stop chan struct{}
}

func NewSaramaClient(cfg ClientConfig) (Client, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "viaduct"
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = false
	if err := applyProps(sc, cfg.Props); err != nil {
		return nil, err
	}

	cl, err := sarama.NewClient(strings.Split(cfg.Cluster, ","), sc)
	if err != nil {
		return nil, err
	}
	cons, err := sarama.NewConsumerFromClient(cl)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}

	c := &SaramaClient{
		cfg:      cfg,
		cl:       cl,
		cons:     cons,
		parts:    make(map[TopicPartition]*partitionStream),
		poms:     make(map[TopicPartition]sarama.PartitionOffsetManager),
		unplaced: make(map[TopicPartition]struct{}),
		msgs:     make(chan *sarama.ConsumerMessage, pollBatchMax),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if cfg.GroupID != "" {
		c.om, err = sarama.NewOffsetManagerFromClient(cfg.GroupID, cl)
		if err != nil {
			_ = cons.Close()
			_ = cl.Close()
			return nil, err
		}
	}
	return c, nil
}

// applyProps maps the opaque per-cluster property bag onto the sarama
// config. Unknown keys pass through silently so bags written for other
// drivers stay valid.
func applyProps(sc *sarama.Config, props map[string]string) error {
	for k, v := range props {
		switch k {
		case "version":
			ver, err := sarama.ParseKafkaVersion(v)
			if err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
			sc.Version = ver
		case "client_id":
			sc.ClientID = v
		case "tls_enabled":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
			sc.Net.TLS.Enable = b
		case "sasl_user":
			sc.Net.SASL.Enable = true
			sc.Net.SASL.User = v
		case "sasl_pass":
			sc.Net.SASL.Enable = true
			sc.Net.SASL.Password = v
		case "fetch_max_bytes":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
			sc.Consumer.Fetch.Max = int32(n)
		default:
			logging.L().Debug("ignoring consumer property", "key", k)
		}
	}
	return nil
}

// Assign records the partition set. Partitions with a committed group offset
// start streaming immediately; the rest stay unplaced until a Seek or a
// policy-driven SeekTo* positions them.
func (c *SaramaClient) Assign(partitions []TopicPartition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tp := range partitions {
		if c.om != nil {
			pom, err := c.pomLocked(tp)
			if err != nil {
				return err
			}
			if next, _ := pom.NextOffset(); next >= 0 {
				if err := c.startPartitionLocked(tp, next); err != nil {
					return err
				}
				continue
			}
		}
		c.unplaced[tp] = struct{}{}
	}
	return nil
}

func (c *SaramaClient) Seek(tp TopicPartition, offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startPartitionLocked(tp, offset)
}

func (c *SaramaClient) SeekToBeginning(partitions []TopicPartition) error {
	return c.seekTo(partitions, sarama.OffsetOldest)
}

func (c *SaramaClient) SeekToEnd(partitions []TopicPartition) error {
	return c.seekTo(partitions, sarama.OffsetNewest)
}

func (c *SaramaClient) seekTo(partitions []TopicPartition, watermark int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tp := range partitions {
		off, err := c.cl.GetOffset(tp.Topic, tp.Partition, watermark)
		if err != nil {
			return fmt.Errorf("watermark for %s: %w", tp, err)
		}
		if err := c.startPartitionLocked(tp, off); err != nil {
			return err
		}
	}
	return nil
}

func (c *SaramaClient) Poll(timeout time.Duration) ([]Record, error) {
	c.mu.Lock()
	var missing []TopicPartition
	if len(c.unplaced) > 0 {
		missing = make([]TopicPartition, 0, len(c.unplaced))
		for tp := range c.unplaced {
			missing = append(missing, tp)
		}
	}
	c.mu.Unlock()
	if len(missing) > 0 {
		return nil, &MissingOffsetError{Partitions: missing}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.msgs:
		out := []Record{recordFrom(msg)}
		// hand over whatever else already arrived
		for len(out) < pollBatchMax {
			select {
			case m := <-c.msgs:
				out = append(out, recordFrom(m))
			default:
				return out, nil
			}
		}
		return out, nil
	case <-c.wake:
		return nil, ErrUnblocked
	case <-c.done:
		return nil, ErrUnblocked
	case <-timer.C:
		return nil, nil
	}
}

// CommitAsync marks the offsets with the group offset manager and flushes in
// a separate goroutine. Without a group id there is nowhere durable to
// commit, which the callback reports as an error.
func (c *SaramaClient) CommitAsync(offsets map[TopicPartition]Commit, cb CommitCallback) {
	go func() {
		if c.om == nil {
			if cb != nil {
				cb(offsets, fmt.Errorf("kafka: cluster %s has no consumer group; offsets not committed", c.cfg.Cluster))
			}
			return
		}
		var err error
		c.mu.Lock()
		for tp, com := range offsets {
			pom, perr := c.pomLocked(tp)
			if perr != nil {
				err = perr
				continue
			}
			pom.MarkOffset(com.Offset, com.Metadata)
		}
		c.mu.Unlock()
		if err == nil {
			c.om.Commit()
		}
		if cb != nil {
			cb(offsets, err)
		}
	}()
}

func (c *SaramaClient) Unblock() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *SaramaClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	for tp, ps := range c.parts {
		close(ps.stop)
		ps.pc.AsyncClose()
		delete(c.parts, tp)
	}
	for tp, pom := range c.poms {
		_ = pom.Close()
		delete(c.poms, tp)
	}
	c.mu.Unlock()

	var err error
	if c.om != nil {
		err = c.om.Close()
	}
	if cerr := c.cons.Close(); err == nil {
		err = cerr
	}
	if cerr := c.cl.Close(); err == nil {
		err = cerr
	}
	return err
}

// Metrics snapshots sarama's go-metrics registry for this cluster.
func (c *SaramaClient) Metrics() map[string]map[string]any {
	return c.cl.Config().MetricRegistry.GetAll()
}

// pomLocked returns the cached partition offset manager, creating it and
// draining its error channel on first use.
func (c *SaramaClient) pomLocked(tp TopicPartition) (sarama.PartitionOffsetManager, error) {
	if pom, ok := c.poms[tp]; ok {
		return pom, nil
	}
	pom, err := c.om.ManagePartition(tp.Topic, tp.Partition)
	if err != nil {
		return nil, err
	}
	go func() {
		for cerr := range pom.Errors() {
			logging.L().Warn("offset manager error",
				"cluster", c.cfg.Cluster, "topic", tp.Topic, "partition", tp.Partition, "error", cerr)
		}
	}()
	c.poms[tp] = pom
	return pom, nil
}

// startPartitionLocked (re)creates the partition consumer at the given
// offset and fans its messages into the shared poll channel.
func (c *SaramaClient) startPartitionLocked(tp TopicPartition, offset int64) error {
	if ps, ok := c.parts[tp]; ok {
		close(ps.stop)
		ps.pc.AsyncClose()
		delete(c.parts, tp)
	}
	pc, err := c.cons.ConsumePartition(tp.Topic, tp.Partition, offset)
	if err != nil {
		return fmt.Errorf("consume %s from %d: %w", tp, offset, err)
	}
	ps := &partitionStream{pc: pc, stop: make(chan struct{})}
	c.parts[tp] = ps
	delete(c.unplaced, tp)

	go func() {
		for {
			select {
			case msg, ok := <-pc.Messages():
				if !ok {
					return
				}
				select {
				case c.msgs <- msg:
				case <-ps.stop:
					return
				case <-c.done:
					return
				}
			case <-ps.stop:
				return
			case <-c.done:
				return
			}
		}
	}()
	go func() {
		for cerr := range pc.Errors() {
			logging.L().Warn("partition consumer error",
				"cluster", c.cfg.Cluster, "topic", tp.Topic, "partition", tp.Partition, "error", cerr.Err)
		}
	}()
	return nil
}

func recordFrom(m *sarama.ConsumerMessage) Record {
	return Record{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
	}
}
