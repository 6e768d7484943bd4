package stdout

import (
	"fmt"
	"sync/atomic"
	"time"

	"viaduct/internal/spec"
	"viaduct/sink"
	"viaduct/source/kafka"
)

type driver struct {
	cfg spec.StdoutSinkSpec
}

var seq uint64

/* ────────── sink.Adapter ────────── */

func (d *driver) Configure(raw any) error {
	if raw == nil {
		return nil
	}
	c, ok := raw.(spec.StdoutSinkSpec)
	if !ok {
		return fmt.Errorf("stdout-sink: expected StdoutSinkSpec, got %T", raw)
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(rec kafka.Record) error {
	if d.cfg.DelayMS > 0 {
		time.Sleep(time.Duration(d.cfg.DelayMS) * time.Millisecond)
	}

	line := fmt.Sprintf("%s %s[%d]@%d", rec.Cluster, rec.Topic, rec.Partition, rec.Offset)
	if d.cfg.PrintCounter {
		line = fmt.Sprintf("[sink %06d] %s", atomic.AddUint64(&seq, 1), line)
	}
	if d.cfg.PrintValue {
		v := rec.Value
		if d.cfg.ValueMaxBytes > 0 && len(v) > d.cfg.ValueMaxBytes {
			v = v[:d.cfg.ValueMaxBytes]
		}
		line = fmt.Sprintf("%s %q", line, v)
	}
	fmt.Println(line)
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */

func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
