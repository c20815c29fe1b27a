// Package ids hands out snowflake ids for connections and notifications.
// Layout: 41 bits of milliseconds since 2020-01-01, 10 bits of node id and
// a 12 bit sequence.
package ids

import (
	"strconv"
	"sync"
	"time"
)

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

var epochMS = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

type generator struct {
	mu       sync.Mutex
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() int64
}

var defaultGen = newGenerator(1)

func newGenerator(nodeID int64) *generator {
	return &generator{nodeID: nodeID, now: func() int64 { return time.Now().UnixMilli() }}
}

func Generate() int64 {
	return defaultGen.next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// SetNodeID sets the node part of later ids. Values outside 0..1023 fall back to 1.
func SetNodeID(nodeID int64) {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	defaultGen.mu.Lock()
	defaultGen.nodeID = nodeID
	defaultGen.mu.Unlock()
}

// NodeOf extracts the node id from an id made by this package.
func NodeOf(id int64) int64 {
	return (id >> seqBits) & maxNode
}

func (g *generator) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.lastTSMS {
		// clock moved back, keep counting on the last timestamp
		now = g.lastTSMS
	}
	if now == g.lastTSMS {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			for now <= g.lastTSMS {
				time.Sleep(100 * time.Microsecond)
				now = g.now()
			}
		}
	} else {
		g.seq = 0
	}
	g.lastTSMS = now

	ts := (now - epochMS) & (1<<41 - 1)
	return ts<<(nodeBits+seqBits) | g.nodeID<<seqBits | g.seq
}
