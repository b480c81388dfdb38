package invoiceid

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

const Prefix = "INV-"

// Generator hands out time based invoice ids. Ids are strictly increasing for
// the lifetime of the generator: when two calls land on the same millisecond
// the later one is pushed to the next free millisecond.
type Generator struct {
	mutex sync.Mutex
	last  int64
}

func New() *Generator {
	return &Generator{}
}

// Next returns a new id for a record accepted at t.
func (g *Generator) Next(t time.Time) string {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	ms := t.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return Prefix + strings.ToUpper(strconv.FormatInt(ms, 36))
}

// Observe makes sure ids already handed out (e.g. loaded from disk) are never
// generated again.
func (g *Generator) Observe(id string) {
	if !strings.HasPrefix(id, Prefix) {
		return
	}
	ms, err := strconv.ParseInt(strings.ToLower(strings.TrimPrefix(id, Prefix)), 36, 64)
	if err != nil {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if ms > g.last {
		g.last = ms
	}
}
