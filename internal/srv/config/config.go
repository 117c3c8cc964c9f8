package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const paramFilename = "param.yaml"
const logFilename = "mkbdstatus.log"
const simulationFolder = "simulation"

const simulatedBatteryFilename = "battery_capacity"
const simulatedUsbFilename = "usb_online"

type ServerConfig struct {
	ConfigDir      string
	DebugMode      bool
	SimulationMode bool

	*ServerParam
}

// NewServerConfig loads the configuration and exits on any error.
func NewServerConfig(configDir string, debugMode bool, simulationMode bool) *ServerConfig {
	serverConfig, err := LoadServerConfig(configDir, debugMode, simulationMode)
	if err != nil {
		logrus.Fatalf("Unable to load configuration: %v\n", err)
	}
	return serverConfig
}

func LoadServerConfig(configDir string, debugMode bool, simulationMode bool) (*ServerConfig, error) {
	serverConfig := &ServerConfig{
		ConfigDir:      configDir,
		DebugMode:      debugMode,
		SimulationMode: simulationMode,
	}

	// Check Configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Printf("Creation of config folder: %s", configDir)
			err = os.MkdirAll(configDir, 0770)
			if err != nil {
				return nil, fmt.Errorf("unable to create config folder: %w", err)
			}
		} else {
			return nil, fmt.Errorf("unable to access config folder %s: %w", configDir, err)
		}
	}

	// Open param file
	serverConfig.ServerParam = &ServerParam{}
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err == nil {
		err = yaml.Unmarshal(rawConfig, serverConfig.ServerParam)
		if err != nil {
			return nil, fmt.Errorf("unable to interpret param file: %w", err)
		}
	} else {
		// Create default param file
		logrus.Infof("Create default param file")
		err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam)
		if err != nil {
			return nil, fmt.Errorf("unable to interpret default param file: %w", err)
		}
		err = serverConfig.SaveParam()
		if err != nil {
			return nil, err
		}
	}

	if err = serverConfig.ServerParam.Validate(); err != nil {
		return nil, err
	}

	if simulationMode {
		err = serverConfig.prepareSimulation()
		if err != nil {
			return nil, err
		}
	}

	return serverConfig, nil
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

func (sc *ServerConfig) GetCompleteLogFilename() string {
	return filepath.Join(sc.ConfigDir, logFilename)
}

func (sc *ServerConfig) GetCompleteSimulationFolder() string {
	return filepath.Join(sc.ConfigDir, simulationFolder)
}

func (sc *ServerConfig) SaveParam() error {
	logrus.Debugf("Save param file: %s", sc.GetCompleteParamFilename())
	rawConfig, err := yaml.Marshal(*sc.ServerParam)
	if err != nil {
		return fmt.Errorf("unable to serialize param file: %w", err)
	}
	err = os.WriteFile(sc.GetCompleteParamFilename(), rawConfig, 0660)
	if err != nil {
		return fmt.Errorf("unable to save param file: %w", err)
	}
	return nil
}

// prepareSimulation points the power readers at plain files under the
// config folder, created full and unplugged.
func (sc *ServerConfig) prepareSimulation() error {
	folder := sc.GetCompleteSimulationFolder()
	err := os.MkdirAll(folder, 0770)
	if err != nil {
		return fmt.Errorf("unable to create simulation folder: %w", err)
	}

	sc.Power.BatteryCapacityPath = filepath.Join(folder, simulatedBatteryFilename)
	sc.Power.UsbOnlinePath = filepath.Join(folder, simulatedUsbFilename)

	defaults := map[string]string{
		sc.Power.BatteryCapacityPath: "100\n",
		sc.Power.UsbOnlinePath:       "0\n",
	}
	for filename, content := range defaults {
		if _, err := os.Stat(filename); err == nil {
			continue
		}
		logrus.Infof("Create simulation file: %s", filename)
		if err := os.WriteFile(filename, []byte(content), 0660); err != nil {
			return fmt.Errorf("unable to create simulation file: %w", err)
		}
	}
	return nil
}
