// Package gtfs reads the stop list of a static GTFS feed.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bussinfr/viewer/internal/models"
)

// StopsFile is the name of the stops table inside a GTFS archive
const StopsFile = "stops.txt"

// Result holds the stops read from a stops.txt file
type Result struct {
	Stops   []models.Stop
	Skipped int
}

// LoadStops reads stops from a GTFS zip archive or a bare stops.txt file
func LoadStops(path string) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return loadZip(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stops file: %w", err)
	}
	defer f.Close()

	return ParseStops(f)
}

func loadZip(path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != StopsFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", StopsFile, err)
		}
		defer rc.Close()
		return ParseStops(rc)
	}
	return nil, fmt.Errorf("%s not found in %s", StopsFile, path)
}

// ParseStops reads a stops.txt table. Rows whose coordinates do not parse
// are skipped and counted.
func ParseStops(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := makeIndex(header)
	for _, col := range []string{"stop_id", "stop_lat", "stop_lon"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	res := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Printf("GTFS: skipping line %d: %v", line, err)
			res.Skipped++
			continue
		}

		lat, err := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
		if err != nil {
			log.Printf("GTFS: skipping line %d: bad latitude %q", line, getField(record, idx, "stop_lat"))
			res.Skipped++
			continue
		}
		lon, err := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)
		if err != nil {
			log.Printf("GTFS: skipping line %d: bad longitude %q", line, getField(record, idx, "stop_lon"))
			res.Skipped++
			continue
		}

		res.Stops = append(res.Stops, models.Stop{
			StopID:   getField(record, idx, "stop_id"),
			StopName: getField(record, idx, "stop_name"),
			StopDesc: getField(record, idx, "stop_desc"),
			Lat:      lat,
			Lon:      lon,
		})
	}

	log.Printf("GTFS parsed: %d stops, %d skipped", len(res.Stops), res.Skipped)
	return res, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
