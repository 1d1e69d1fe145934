package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/brewfridge/internal/config"
)

// WriteBootScript writes the oneshot script that puts the actuator pins in a
// safe state before the controller starts: PWM pin muxed to its PWM function
// and the enable line driven inactive.
func WriteBootScript(path string, a config.Actuator) error {
	lines := []string{"#!/bin/bash", "", "# brewfridge actuator pin configuration at boot", ""}

	if a.PWMPin != nil {
		lines = append(lines, "# pwm output")
		lines = append(lines, fmt.Sprintf("pinctrl set %d %s pn", *a.PWMPin, a.PWMPinFunction))
		lines = append(lines, "")
	}

	if a.EnableLine != nil {
		drive := "dl"
		if !a.EnableActiveHigh {
			drive = "dh"
		}
		lines = append(lines, "# actuator enable, inactive")
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", *a.EnableLine, drive))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(contents), 0755)
}

func InstallPinsService(unitPath, scriptPath string) error {
	unit := fmt.Sprintf(`[Unit]
Description=Configure brewfridge actuator pins at boot
After=local-fs.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, scriptPath)

	return os.WriteFile(unitPath, []byte(unit), 0644)
}

// InstallMainService writes the controller unit. Restart=always is what
// brings the process back after a remote restart command exits it cleanly.
func InstallMainService(in config.Install, configPath string) error {
	pinsUnit := filepath.Base(in.PinsUnit)

	unit := fmt.Sprintf(`[Unit]
Description=brewfridge cooling controller
After=network-online.target %s
Wants=network-online.target
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s run --config %s
Restart=always
RestartSec=1s

[Install]
WantedBy=multi-user.target
`, pinsUnit, pinsUnit, in.User, in.WorkDir, in.Binary, configPath)

	return os.WriteFile(in.MainUnit, []byte(unit), 0644)
}

// Install writes the boot script and both units.
func Install(cfg config.Config) error {
	if err := WriteBootScript(cfg.Install.BootScript, cfg.Actuator); err != nil {
		return fmt.Errorf("write boot script: %w", err)
	}
	if err := InstallPinsService(cfg.Install.PinsUnit, cfg.Install.BootScript); err != nil {
		return fmt.Errorf("write pins unit: %w", err)
	}
	if err := InstallMainService(cfg.Install, cfg.ConfigFile); err != nil {
		return fmt.Errorf("write main unit: %w", err)
	}
	return nil
}

var runScript = func(path string) error {
	cmd := exec.Command("/bin/bash", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RunBootScript applies the pin configuration immediately, without a reboot.
func RunBootScript(path string) error {
	return runScript(path)
}
