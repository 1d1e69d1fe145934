package pinctrl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

type PinState struct {
	Pin      int
	Function string // e.g. "ip", "op", "a3", "no"
	Pull     string // e.g. "pu", "pd", "pn"
	Level    string // e.g. "hi", "lo", "--"
	Comment  string // e.g. "GPIO18 = PWM0_CHAN2"
}

var pinLineRegex = regexp.MustCompile(`^\s*(\d+):\s+(\S+)\s+(.*?)\s*\|\s+(\S+)\s+//\s+(.*)$`)

// run executes pinctrl with the given arguments.
var run = func(args ...string) ([]byte, error) {
	return exec.Command("pinctrl", args...).CombinedOutput()
}

func parseGetOutput(r io.Reader) map[int]PinState {
	result := make(map[int]PinState)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		matches := pinLineRegex.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			continue
		}

		pin, _ := strconv.Atoi(matches[1])
		state := PinState{
			Pin:      pin,
			Function: matches[2],
			Level:    matches[4],
			Comment:  strings.TrimSpace(matches[5]),
		}
		for _, opt := range strings.Fields(matches[3]) {
			if opt == "pu" || opt == "pd" || opt == "pn" {
				state.Pull = opt
			}
		}
		result[pin] = state
	}
	return result
}

// ReadPin returns the current mux state of a single GPIO.
func ReadPin(pin int) (*PinState, error) {
	out, err := run("get", fmt.Sprint(pin))
	if err != nil {
		return nil, fmt.Errorf("failed to execute pinctrl get %d: %w", pin, err)
	}
	state, ok := parseGetOutput(bytes.NewReader(out))[pin]
	if !ok {
		return nil, fmt.Errorf("pin %d not found in pinctrl output", pin)
	}
	return &state, nil
}

// EnsureFunction muxes pin to fn (e.g. "a3" for the PWM alternate function)
// unless it is already selected. It reports whether a change was made.
func EnsureFunction(pin int, fn string) (bool, error) {
	state, err := ReadPin(pin)
	if err != nil {
		return false, err
	}
	if state.Function == fn {
		return false, nil
	}

	out, err := run("set", fmt.Sprint(pin), fn)
	if err != nil {
		return false, fmt.Errorf("pinctrl set failed: %s (output: %s)", err, string(out))
	}
	return true, nil
}
