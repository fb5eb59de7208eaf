package csvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tbmpos/backend/internal/domain"
)

const sequenceFile = "order_seq.txt"

// NextOrderID hands out POS order numbers from a persisted counter that lives
// in the conf dir, outside any day snapshot, so rotation never resets it. The
// counter is lazily seeded from the highest order_id already present in the
// active snapshot's sales table. With peek the upcoming number is returned
// without being consumed, so repeated peeks see the same value.
func (s *Store) NextOrderID(_ context.Context, peek bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextOrderIDLocked(peek)
}

func (s *Store) nextOrderIDLocked(peek bool) (int64, error) {
	path := filepath.Join(s.confDir, sequenceFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		seed := s.scanMaxOrderIDLocked()
		data = []byte(strconv.FormatInt(seed, 10))
		if err := writeFileAtomic(path, data); err != nil {
			return 0, fmt.Errorf("csvstore: seed order sequence: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("csvstore: read order sequence: %w", err)
	}

	current, _ := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	next := current + 1
	if !peek {
		if err := writeFileAtomic(path, []byte(strconv.FormatInt(next, 10))); err != nil {
			return 0, fmt.Errorf("csvstore: advance order sequence: %w", err)
		}
	}
	return next, nil
}

// scanMaxOrderIDLocked is best effort: unreadable tables or unparsable rows
// contribute nothing rather than failing the seed.
func (s *Store) scanMaxOrderIDLocked() int64 {
	rows, err := s.readRowsLocked(domain.TableSales)
	if err != nil {
		return 0
	}
	var max int64
	for _, r := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(r["order_id"]), 10, 64)
		if err == nil && id > max {
			max = id
		}
	}
	return max
}
