package config

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/jypelle/mkbdstatus/internal/srv/status"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

const (
	WINDOW_SIMULATION   = "window"
	TERMINAL_SIMULATION = "terminal"
)

type ServerParam struct {
	Display   DisplayParam   `yaml:"display"`
	Power     PowerParam     `yaml:"power"`
	Status    StatusParam    `yaml:"status"`
	Animation AnimationParam `yaml:"animation"`
	ApiParam  ApiParam       `yaml:"api"`
}

type DisplayParam struct {
	Contrast   uint8  `yaml:"contrast"`
	Simulation string `yaml:"simulation"`
	ButtonPin  string `yaml:"button_pin"`
}

type PowerParam struct {
	BatteryCapacityPath string `yaml:"battery_capacity_path"`
	UsbOnlinePath       string `yaml:"usb_online_path"`
	PollIntervalMs      int64  `yaml:"poll_interval_ms"`
}

func (p PowerParam) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

type StatusParam struct {
	Policy         status.Policy `yaml:"policy"`
	Greeting       string        `yaml:"greeting"`
	GreetingHoldMs int64         `yaml:"greeting_hold_ms"`
}

func (p StatusParam) GreetingHold() time.Duration {
	return time.Duration(p.GreetingHoldMs) * time.Millisecond
}

type AnimationParam struct {
	DurationMs int64 `yaml:"duration_ms"`
}

func (p AnimationParam) Duration() time.Duration {
	return time.Duration(p.DurationMs) * time.Millisecond
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	SslPort int64  `yaml:"ssl_port"`
	ApiKey  string `yaml:"api_key"`
}

// Validate rejects values the status display cannot run with.
func (p *ServerParam) Validate() error {
	switch p.Display.Simulation {
	case WINDOW_SIMULATION, TERMINAL_SIMULATION:
	default:
		return fmt.Errorf("display.simulation: unknown backend %q", p.Display.Simulation)
	}
	if p.Power.PollIntervalMs <= 0 {
		return fmt.Errorf("power.poll_interval_ms: must be positive, got %d", p.Power.PollIntervalMs)
	}
	if _, err := status.NewRenderer(p.Status.Policy); err != nil {
		return fmt.Errorf("status.policy: %w", err)
	}
	if p.Status.GreetingHoldMs < 0 {
		return fmt.Errorf("status.greeting_hold_ms: must not be negative, got %d", p.Status.GreetingHoldMs)
	}
	if p.Animation.DurationMs <= 0 {
		return fmt.Errorf("animation.duration_ms: must be positive, got %d", p.Animation.DurationMs)
	}
	if p.ApiParam.Enabled && (p.ApiParam.SslPort <= 0 || p.ApiParam.SslPort > 65535) {
		return fmt.Errorf("api.ssl_port: invalid port %d", p.ApiParam.SslPort)
	}
	return nil
}
