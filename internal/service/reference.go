package service

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ReferenceGenerator issues human-facing support ticket references.
type ReferenceGenerator struct {
	node *snowflake.Node
}

// NewReferenceGenerator creates a generator for one snowflake node
// (0..1023).  Instances sharing a database need distinct node ids.
func NewReferenceGenerator(nodeID int64) (*ReferenceGenerator, error) {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &ReferenceGenerator{node: n}, nil
}

// Next returns a reference such as "TCK-1A2B3C4D5E6F".
func (g *ReferenceGenerator) Next() string {
	return "TCK-" + strings.ToUpper(g.node.Generate().Base36())
}
