package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewRequestID generates a KSUID string used to tag log lines of one request.
func NewRequestID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewAccountNumber generates a numeric bank account number from a snowflake
// node. The node ID comes from the SNOWFLAKE_NODE environment variable and
// defaults to 1. If node setup fails it falls back to a KSUID string so a
// unique value is still returned.
func NewAccountNumber() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			return
		}
		node = n
	})
	if node == nil {
		return ksuid.New().String()
	}
	return node.Generate().String()
}
