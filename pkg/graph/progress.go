package graph

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
)

// progressTracker accumulates pipeline counters on atomics and narrates
// them periodically. The narrative is computed locally from the counters,
// it never calls out to anything that can fail independently of ingestion.
type progressTracker struct {
	startTime time.Time

	documents     atomic.Int64
	chunks        atomic.Int64
	totalChunks   atomic.Int64
	entities      atomic.Int64
	relationships atomic.Int64

	stop chan struct{}
	done chan struct{}
}

func newProgressTracker() *progressTracker {
	return &progressTracker{
		startTime: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// run emits a narrative line every interval until Stop is called.
func (p *progressTracker) run(interval time.Duration) {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				logger.Info(p.narrative())
			}
		}
	}()
}

func (p *progressTracker) Stop() {
	close(p.stop)
	<-p.done
}

func (p *progressTracker) narrative() string {
	elapsed := time.Since(p.startTime).Round(time.Second)
	chunks := p.chunks.Load()
	total := p.totalChunks.Load()

	chunkPart := fmt.Sprintf("%d chunks", chunks)
	if total > 0 {
		chunkPart = fmt.Sprintf("%d/%d chunks", chunks, total)
	}

	return fmt.Sprintf("[Ingest] Progress after %s: %d document(s), %s, %d entit(ies), %d relationship(s)",
		elapsed, p.documents.Load(), chunkPart, p.entities.Load(), p.relationships.Load())
}
