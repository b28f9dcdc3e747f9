package turn

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out turn ids of the form "<session>-turn-N".
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-turn-%d", sessionID, n)
}
