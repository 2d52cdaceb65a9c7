package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// barrierFile is the JSON export of the route service: either a bare array
// of barriers or an object wrapping one.
type barrierFile struct {
	Barriers []domain.Barrier `json:"barriers"`
}

// readSource loads src from disk or, for http(s) URLs, over the network.
func readSource(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
	}
	return io.ReadAll(resp.Body)
}

// parseBarriers decodes a JSON or CSV export. CSV is chosen by the .csv
// suffix of name.
func parseBarriers(name string, data []byte) ([]domain.Barrier, error) {
	if strings.HasSuffix(strings.ToLower(name), ".csv") {
		return parseBarrierCSV(bytes.NewReader(data))
	}
	return parseBarrierJSON(data)
}

func parseBarrierJSON(data []byte) ([]domain.Barrier, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []domain.Barrier
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse barriers: %w", err)
		}
		return list, nil
	}

	var f barrierFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse barriers: %w", err)
	}
	return f.Barriers, nil
}

// parseBarrierCSV reads rows of barrier_id,spatial_id,risk[,status]. Rows of
// one barrier keep their file order; barriers keep the order they first
// appear in.
func parseBarrierCSV(r io.Reader) ([]domain.Barrier, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range []string{"barrier_id", "spatial_id"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	var order []string
	byID := make(map[string]*domain.Barrier)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id := getField(record, cols, "barrier_id")
		if id == "" {
			continue
		}
		risk := 0
		if s := getField(record, cols, "risk"); s != "" {
			if risk, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: risk %q: %w", line, s, err)
			}
		}

		b, ok := byID[id]
		if !ok {
			b = &domain.Barrier{ID: id}
			byID[id] = b
			order = append(order, id)
		}
		if s := getField(record, cols, "status"); s != "" {
			b.Status = domain.BarrierStatus(strings.ToUpper(s))
		}
		b.Definitions = append(b.Definitions, domain.BarrierDefinition{
			SpatialID: getField(record, cols, "spatial_id"),
			Risk:      risk,
		})
	}

	out := make([]domain.Barrier, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
