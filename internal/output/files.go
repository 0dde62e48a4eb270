package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lucsky/cuid"
)

// CSVOutput writes one CSV file per topic and partition. The header is the
// sorted field set of the first event written to the file.
type CSVOutput struct {
	basePath string
	folder   string
	part     string
	files    map[string]*os.File
	writers  map[string]*csv.Writer
	headers  map[string][]string
}

type JSONOutput struct {
	basePath string
	folder   string
	part     string
	files    map[string]*os.File
}

func NewCSVOutput(basePath, folder string) *CSVOutput {
	return &CSVOutput{
		basePath: basePath,
		folder:   folder,
		part:     cuid.New(),
		files:    make(map[string]*os.File),
		writers:  make(map[string]*csv.Writer),
		headers:  make(map[string][]string),
	}
}

func NewJSONOutput(basePath, folder string) *JSONOutput {
	return &JSONOutput{
		basePath: basePath,
		folder:   folder,
		part:     cuid.New(),
		files:    make(map[string]*os.File),
	}
}

// openPartition creates the partition directory and returns the path of this
// output's part file in it.
func openPartition(basePath, folder, topic, part, ext string, msg []byte) (string, string, error) {
	partitionPath, err := partition(msg)
	if err != nil {
		return "", "", err
	}
	fullPath := filepath.Join(basePath, folder, topic, partitionPath)
	if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
		return "", "", err
	}
	fileKey := fmt.Sprintf("%s_%s", topic, partitionPath)
	return fileKey, filepath.Join(fullPath, fmt.Sprintf("part-%s.%s", part, ext)), nil
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	event, err := decodeMap(msg)
	if err != nil {
		return err
	}
	fileKey, path, err := openPartition(c.basePath, c.folder, topic, c.part, "csv", msg)
	if err != nil {
		return err
	}

	csvWriter, ok := c.writers[fileKey]
	if !ok {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		c.files[fileKey] = file
		csvWriter = csv.NewWriter(file)
		c.writers[fileKey] = csvWriter

		headers := c.getHeaders(event)
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
		c.headers[fileKey] = headers
	}

	row := make([]string, len(c.headers[fileKey]))
	for i, header := range c.headers[fileKey] {
		if value, ok := event[header]; ok {
			row[i] = fmt.Sprintf("%v", value)
		}
	}
	if err := csvWriter.Write(row); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (c *CSVOutput) getHeaders(event map[string]interface{}) []string {
	headers := make([]string, 0, len(event))
	for key := range event {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

func (c *CSVOutput) Close() error {
	var lastErr error
	for key, csvWriter := range c.writers {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			lastErr = err
		}
		if err := c.files[key].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	if _, err := decodeMap(msg); err != nil {
		return err
	}
	fileKey, path, err := openPartition(j.basePath, j.folder, topic, j.part, "json", msg)
	if err != nil {
		return err
	}

	file, ok := j.files[fileKey]
	if !ok {
		file, err = os.Create(path)
		if err != nil {
			return err
		}
		j.files[fileKey] = file
	}

	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err = file.WriteString("\n")
	return err
}

func (j *JSONOutput) Close() error {
	var lastErr error
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// decodeMap keeps numbers as written so CSV cells do not turn into floats in
// exponent form.
func decodeMap(msg []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var event map[string]interface{}
	if err := dec.Decode(&event); err != nil {
		return nil, err
	}
	return event, nil
}
