package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Initialize configures the generator with the node ID for this instance.
// Each running instance needs a distinct node ID (server.node_id in the
// config) so IDs never collide across replicas.
func Initialize(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}

	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// GenerateID returns a new Snowflake ID as a string. Falls back to node 0
// when Initialize was never called, which is only safe single-instance.
func GenerateID() string {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()

	return n.Generate().String()
}
