package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"viaduct/source/kafka"
)

type offsetEntry struct {
	Cluster   string `yaml:"cluster"`
	Topic     string `yaml:"topic"`
	Partition int32  `yaml:"partition"`
	Offset    int64  `yaml:"offset"`
}

// LoadOffsetTrack reads a previously persisted offset snapshot. A missing
// file is an empty snapshot, not an error.
func LoadOffsetTrack(path string) (map[kafka.PartitionMeta]int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[kafka.PartitionMeta]int64{}, nil
		}
		return nil, err
	}
	var entries []offsetEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	track := make(map[kafka.PartitionMeta]int64, len(entries))
	for _, e := range entries {
		track[kafka.PartitionMeta{Cluster: e.Cluster, Topic: e.Topic, Partition: e.Partition}] = e.Offset
	}
	return track, nil
}
