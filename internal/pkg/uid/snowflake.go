package uid

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit, time-ordered ids unique per node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for node, which must be in [0, 1023].
// A negative node is derived from the hostname.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 {
		node = hostNode()
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", node, err)
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func hostNode() int64 {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return int64(h.Sum32() % 1024)
}
