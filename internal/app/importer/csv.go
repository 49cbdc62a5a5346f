// Package importer appends nodes to a source from a CSV file with a
// name,nodeid,type header.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghalamif/plcbridge/internal/app/config"
)

var requiredColumns = []string{"name", "nodeid", "type"}

// Result summarizes one import.
type Result struct {
	Added []config.NodeConfig
	// Skipped counts rows with a missing field or a name already present.
	Skipped int
}

// ImportFile is Import over the file at path.
func ImportFile(path string, src *config.SourceConfig) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Import(f, src)
}

// Import reads rows from r and appends every node whose name is not yet
// configured on src. Column order and header case do not matter; type tags
// are upper-cased. src is left untouched when the file cannot be parsed.
func Import(r io.Reader, src *config.SourceConfig) (Result, error) {
	if src == nil {
		return Result{}, errors.New("importer: nil source")
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, errors.New("importer: empty file")
	}
	if err != nil {
		return Result{}, fmt.Errorf("importer: read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return Result{}, err
	}

	existing := make(map[string]struct{}, len(src.Nodes))
	for _, n := range src.Nodes {
		existing[n.Name] = struct{}{}
	}

	var res Result
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("importer: %w", err)
		}

		node, ok := nodeFromRow(row, cols)
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := existing[node.Name]; dup {
			res.Skipped++
			continue
		}
		existing[node.Name] = struct{}{}
		res.Added = append(res.Added, node)
	}

	for _, n := range res.Added {
		if err := src.AddNode(n); err != nil {
			return res, err
		}
	}
	return res, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := cols[h]; !seen {
			cols[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("importer: header is missing column(s) %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func nodeFromRow(row []string, cols map[string]int) (config.NodeConfig, bool) {
	field := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	name, okName := field("name")
	nodeID, okID := field("nodeid")
	typ, okType := field("type")
	if !okName || !okID || !okType || name == "" || nodeID == "" {
		return config.NodeConfig{}, false
	}
	return config.NodeConfig{Name: name, NodeID: nodeID, Type: strings.ToUpper(typ)}, true
}
