package catalog

import (
	"fmt"
	"os"

	"github.com/sregle/vtubot/internal/models"
	"gopkg.in/yaml.v3"
)

// overridesFile is the on-disk shape of the manual plan overrides file:
//
//	data:
//	  - plan_code: "7"
//	    network: mtn
//	    name: MTN SME 1GB
//	    amount: 620
//	cable:
//	  - plan_code: "5"
//	    provider: dstv
//	    name: DSTV YANGA
//	    amount: 6000
type overridesFile struct {
	Data  []overrideEntry `yaml:"data"`
	Cable []overrideEntry `yaml:"cable"`
}

type overrideEntry struct {
	PlanCode string  `yaml:"plan_code"`
	Network  string  `yaml:"network"`
	Provider string  `yaml:"provider"`
	Name     string  `yaml:"name"`
	Amount   float64 `yaml:"amount"`
	PlanType string  `yaml:"type"`
}

// LoadOverridesFile parses a manual plan overrides YAML file into Plan
// records flagged as manual.
func LoadOverridesFile(path string) ([]models.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}
	var parsed overridesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}

	var plans []models.Plan
	for _, e := range parsed.Data {
		plans = append(plans, models.Plan{
			ID: e.PlanCode, Name: e.Name, Amount: e.Amount,
			Kind: models.PlanKindData, Network: e.Network, PlanType: e.PlanType,
			Manual: true,
		})
	}
	for _, e := range parsed.Cable {
		plans = append(plans, models.Plan{
			ID: e.PlanCode, Name: e.Name, Amount: e.Amount,
			Kind: models.PlanKindCable, Provider: e.Provider,
			Manual: true,
		})
	}
	return plans, nil
}
