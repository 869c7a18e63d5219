package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RegionsConfig represents the full regions configuration file.
type RegionsConfig struct {
	Regions []RegionSeed `json:"regions"`
}

var (
	regionsConfig *RegionsConfig
	regionsLock   sync.RWMutex
	regionsPath   = "config/regions.json"
)

// LoadRegionsConfig loads the regions configuration from file. When the
// file does not exist the seed regions are used instead.
func LoadRegionsConfig() error {
	regionsLock.Lock()
	defer regionsLock.Unlock()

	absPath, err := filepath.Abs(regionsPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		regionsConfig = &RegionsConfig{Regions: SeedRegions}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	var config RegionsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %v", err)
	}

	regionsConfig = &config
	return nil
}

// SaveRegionsConfig saves the current configuration to file.
func SaveRegionsConfig() error {
	regionsLock.Lock()
	defer regionsLock.Unlock()

	if regionsConfig == nil {
		return fmt.Errorf("no configuration loaded")
	}

	absPath, err := filepath.Abs(regionsPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := json.MarshalIndent(regionsConfig, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// GetConfiguredRegions returns all configured regions.
func GetConfiguredRegions() []RegionSeed {
	regionsLock.RLock()
	defer regionsLock.RUnlock()

	if regionsConfig == nil {
		return nil
	}

	regions := make([]RegionSeed, len(regionsConfig.Regions))
	copy(regions, regionsConfig.Regions)
	return regions
}

// GetConfiguredRegionByName returns a specific configured region by name.
func GetConfiguredRegionByName(name string) *RegionSeed {
	regionsLock.RLock()
	defer regionsLock.RUnlock()

	if regionsConfig == nil {
		return nil
	}

	for _, region := range regionsConfig.Regions {
		if region.Name == name {
			return &RegionSeed{
				Name:        region.Name,
				Departments: append([]int(nil), region.Departments...),
			}
		}
	}
	return nil
}
