package sensor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOReader reads a DHT-class sensor exposed through the Linux industrial
// I/O subsystem. The driver reports milli-degrees and milli-percent.
type IIOReader struct {
	Device string
}

func NewIIOReader(device string) *IIOReader {
	return &IIOReader{Device: device}
}

func (r *IIOReader) Read() (float64, float64, error) {
	temp, err := readMilli(filepath.Join(r.Device, "in_temp_input"))
	if err != nil {
		return math.NaN(), math.NaN(), err
	}

	humidity, err := readMilli(filepath.Join(r.Device, "in_humidityrelative_input"))
	if err != nil {
		return math.NaN(), math.NaN(), err
	}

	return temp, humidity, nil
}

func readMilli(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return float64(raw) / 1000.0, nil
}
