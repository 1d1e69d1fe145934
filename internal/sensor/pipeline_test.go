package sensor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

type MockNotifier struct {
	calls []string
}

func (m *MockNotifier) SendAsync(title, message string) {
	m.calls = append(m.calls, title+": "+message)
}

func defaultLimits() Limits {
	return Limits{
		TempMin:       -10,
		TempMax:       50,
		HumidityMin:   5,
		HumidityMax:   99,
		TempMaxDelta:  3,
		HumidityDelta: 10,
	}
}

type TestScenario struct {
	name             string
	samples          []Sample
	expectedReasons  []Rejection
	expectedTemp     float64
	expectedHumidity float64
	expectedAlerts   int
}

func runScenario(t *testing.T, scenario TestScenario) *MockNotifier {
	notifier := &MockNotifier{}
	reader := &FakeReader{Samples: scenario.samples}
	p := NewPipeline(reader, defaultLimits(), 2*time.Second, 5, notifier)
	st := model.NewCanonicalState(model.DefaultPersistedConfig())

	start := time.Unix(1700000000, 0)
	for i := range scenario.samples {
		res := p.Poll(start.Add(time.Duration(i)*2*time.Second), st)
		require.True(t, res.Attempted, "poll %d should read the sensor", i)
		assert.Equal(t, scenario.expectedReasons[i], res.Rejection,
			"Sample %d (%.1f°C, %.1f%%) rejection mismatch", i, res.Temperature, res.Humidity)
	}

	if math.IsNaN(scenario.expectedTemp) {
		assert.False(t, st.HasTemperature())
	} else {
		assert.InDelta(t, scenario.expectedTemp, st.Temperature, 0.001)
		assert.InDelta(t, scenario.expectedHumidity, st.Humidity, 0.001)
	}
	assert.Len(t, notifier.calls, scenario.expectedAlerts, "alerts: %v", notifier.calls)
	return notifier
}

func TestNormalReadings(t *testing.T) {
	runScenario(t, TestScenario{
		name: "Gradual changes are all accepted",
		samples: []Sample{
			{Temp: 4.0, Humidity: 60}, {Temp: 4.5, Humidity: 61}, {Temp: 5.2, Humidity: 62},
		},
		expectedReasons:  []Rejection{Accepted, Accepted, Accepted},
		expectedTemp:     5.2,
		expectedHumidity: 62,
	})
}

func TestSpikeRejected(t *testing.T) {
	runScenario(t, TestScenario{
		name: "Accepted 10.0 then a 14.0 spike",
		samples: []Sample{
			{Temp: 10.0, Humidity: 60}, {Temp: 14.0, Humidity: 60},
		},
		expectedReasons:  []Rejection{Accepted, RejectSpike},
		expectedTemp:     10.0,
		expectedHumidity: 60,
	})
}

func TestHumiditySpikeRejected(t *testing.T) {
	runScenario(t, TestScenario{
		name: "Humidity jumps more than allowed",
		samples: []Sample{
			{Temp: 10.0, Humidity: 40}, {Temp: 10.1, Humidity: 55},
		},
		expectedReasons:  []Rejection{Accepted, RejectSpike},
		expectedTemp:     10.0,
		expectedHumidity: 40,
	})
}

func TestFirstSampleSkipsSpikeCheck(t *testing.T) {
	runScenario(t, TestScenario{
		name:             "First reading has no baseline",
		samples:          []Sample{{Temp: 45.0, Humidity: 90}},
		expectedReasons:  []Rejection{Accepted},
		expectedTemp:     45.0,
		expectedHumidity: 90,
	})
}

func TestOutOfRangeAndNaN(t *testing.T) {
	runScenario(t, TestScenario{
		name: "Implausible values never reach state",
		samples: []Sample{
			{Temp: 60.0, Humidity: 50},
			{Temp: 20.0, Humidity: 2},
			{Temp: math.NaN(), Humidity: 50},
			{Temp: 20.0, Humidity: 50, Err: errors.New("EIO")},
		},
		expectedReasons: []Rejection{RejectRange, RejectRange, RejectNaN, RejectNaN},
		expectedTemp:    math.NaN(),
	})
}

func TestBoundaryValuesAccepted(t *testing.T) {
	st := model.NewCanonicalState(model.DefaultPersistedConfig())
	l := defaultLimits()

	assert.Equal(t, Accepted, Validate(-10, 5, st, l))
	assert.Equal(t, Accepted, Validate(50, 99, st, l))

	st.Temperature, st.Humidity = 10, 50
	assert.Equal(t, Accepted, Validate(13, 60, st, l), "exact delta is not a spike")
	assert.Equal(t, RejectSpike, Validate(13.01, 60, st, l))
}

func TestFaultAlertAndRecovery(t *testing.T) {
	samples := []Sample{{Temp: 4.0, Humidity: 60}}
	reasons := []Rejection{Accepted}
	for i := 0; i < 6; i++ {
		samples = append(samples, Sample{Temp: math.NaN(), Humidity: math.NaN()})
		reasons = append(reasons, RejectNaN)
	}
	samples = append(samples, Sample{Temp: 4.2, Humidity: 61})
	reasons = append(reasons, Accepted)

	notifier := runScenario(t, TestScenario{
		name:             "Sensor drops out then returns",
		samples:          samples,
		expectedReasons:  reasons,
		expectedTemp:     4.2,
		expectedHumidity: 61,
		expectedAlerts:   2,
	})

	assert.Equal(t, "Fridge sensor fault: 5 consecutive sensor samples rejected", notifier.calls[0])
	assert.Contains(t, notifier.calls[1], "Fridge sensor recovered")
}

func TestPollRespectsInterval(t *testing.T) {
	reader := &FakeReader{}
	reader.Push(4.0, 60)
	p := NewPipeline(reader, defaultLimits(), 2*time.Second, 0, nil)
	st := model.NewCanonicalState(model.DefaultPersistedConfig())

	start := time.Unix(1700000000, 0)
	assert.True(t, p.Poll(start, st).Accepted())
	assert.False(t, p.Poll(start.Add(500*time.Millisecond), st).Attempted)
	assert.False(t, p.Poll(start.Add(1999*time.Millisecond), st).Attempted)
	assert.True(t, p.Poll(start.Add(2*time.Second), st).Attempted)
	assert.Equal(t, 2, reader.Reads)
}

func TestIIOReader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_temp_input"), []byte("4500\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_humidityrelative_input"), []byte("61200\n"), 0644))

	temp, humidity, err := NewIIOReader(dir).Read()
	require.NoError(t, err)
	assert.InDelta(t, 4.5, temp, 0.0001)
	assert.InDelta(t, 61.2, humidity, 0.0001)
}

func TestIIOReader_MissingDeviceYieldsNaN(t *testing.T) {
	temp, humidity, err := NewIIOReader(filepath.Join(t.TempDir(), "missing")).Read()
	assert.Error(t, err)
	assert.True(t, math.IsNaN(temp))
	assert.True(t, math.IsNaN(humidity))
}
