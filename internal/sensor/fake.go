package sensor

import "math"

// Sample is one scripted reading for FakeReader.
type Sample struct {
	Temp     float64
	Humidity float64
	Err      error
}

// FakeReader replays scripted samples and then repeats the last one.
type FakeReader struct {
	Samples []Sample
	Reads   int
}

func (f *FakeReader) Read() (float64, float64, error) {
	if len(f.Samples) == 0 {
		f.Reads++
		return math.NaN(), math.NaN(), nil
	}

	idx := f.Reads
	if idx >= len(f.Samples) {
		idx = len(f.Samples) - 1
	}
	f.Reads++

	s := f.Samples[idx]
	return s.Temp, s.Humidity, s.Err
}

// Push appends a sample to the script.
func (f *FakeReader) Push(temp, humidity float64) {
	f.Samples = append(f.Samples, Sample{Temp: temp, Humidity: humidity})
}
