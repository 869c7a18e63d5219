package config

// RegionSeed is a region definition shipped with the application.
type RegionSeed struct {
	Name        string `json:"name"`
	Departments []int  `json:"departments"`
}

// SeedRegions is the list of regions the application knows out of the
// box. Île-de-France is the subset the analysis historically focused on.
var SeedRegions = []RegionSeed{
	{
		Name:        "ile-de-france",
		Departments: []int{75, 77, 78, 91, 92, 93, 94, 95},
	},
	// Add more regions here as needed
}

// GetRegionNames returns the names of the seed regions.
func GetRegionNames() []string {
	names := make([]string, len(SeedRegions))
	for i, region := range SeedRegions {
		names[i] = region.Name
	}
	return names
}

// GetRegionByName returns a seed region by name.
func GetRegionByName(name string) *RegionSeed {
	for _, region := range SeedRegions {
		if region.Name == name {
			return &region
		}
	}
	return nil
}
