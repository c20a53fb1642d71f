package misc

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"

	log "github.com/sirupsen/logrus"
)

// CoachingTip is a short swing coaching cue shown to players between
// sessions.
type CoachingTip struct {
	Text     string `json:"text"`
	Coach    string `json:"coach"`
	Category string `json:"category"`
}

type TipsManager struct {
	tips []CoachingTip
}

// NewTipsManager reads coaching tips from a CSV source with rows of
// (text, coach, category). The header row is skipped.
func NewTipsManager(tipsCsvReader *csv.Reader) (*TipsManager, error) {
	tm := &TipsManager{}

	header := true
	for {
		record, err := tipsCsvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tips csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 3 {
			log.Warnf("skipping malformed tips csv row: %v", record)
			continue
		}
		tm.tips = append(tm.tips, CoachingTip{
			Text:     record[0],
			Coach:    record[1],
			Category: record[2],
		})
	}

	if len(tm.tips) == 0 {
		return nil, fmt.Errorf("no coaching tips loaded")
	}

	log.Debugf("loaded %d coaching tips", len(tm.tips))
	return tm, nil
}

func (tm *TipsManager) RandomTip() CoachingTip {
	return tm.tips[rand.Intn(len(tm.tips))]
}
