package kafka

import "fmt"

// Factory builds a connected Client for one cluster.
type Factory func(ClientConfig) (Client, error)

var registry = map[string]Factory{}

// Register is called from each driver's init() or from main.
func Register(name string, f Factory) {
	registry[name] = f
}

// NewClient returns a driver by name ("sarama", ...).
func NewClient(name string, cfg ClientConfig) (Client, error) {
	if f, ok := registry[name]; ok {
		return f(cfg)
	}
	return nil, fmt.Errorf("kafka: unsupported driver %q", name)
}
