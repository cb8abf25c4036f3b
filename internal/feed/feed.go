// Package feed decodes raw leaderboard feed documents: the JSON body served
// by the results backend, containing the player directory and the per-chart
// raw result streams.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/apetrov-dev/piutop/internal/model"
)

// playerInfo is the wire shape of one player directory entry.
type playerInfo struct {
	Nickname   string `json:"nickname"`
	ArcadeName string `json:"arcade_name"`
	Region     string `json:"region,omitempty"`
}

// document is the wire shape of a feed batch.
type document struct {
	LastUpdatedAt string                    `json:"lastUpdatedAt"`
	Players       map[string]playerInfo     `json:"players"`
	Charts        map[string]model.RawChart `json:"charts"`
}

// Batch is a decoded feed document.
type Batch struct {
	LastUpdatedAt string
	Players       map[int]model.Player
	Charts        map[string]model.RawChart
}

// Decode reads one feed document from r.
func Decode(r io.Reader) (*Batch, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	batch := &Batch{
		LastUpdatedAt: doc.LastUpdatedAt,
		Players:       make(map[int]model.Player, len(doc.Players)),
		Charts:        doc.Charts,
	}
	if batch.Charts == nil {
		batch.Charts = map[string]model.RawChart{}
	}
	for idStr, p := range doc.Players {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			// Noise in the directory is dropped like noise in the results.
			continue
		}
		batch.Players[id] = model.Player{
			ID:         id,
			Nickname:   p.Nickname,
			ArcadeName: p.ArcadeName,
			Region:     p.Region,
		}
	}
	return batch, nil
}

// DecodeFile reads one feed document from a file on disk.
func DecodeFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
