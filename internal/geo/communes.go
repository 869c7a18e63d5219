package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Commune is one entry of the French commune reference directory.
type Commune struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	DepartmentCode string  `json:"department_code"`
	Region         string  `json:"region"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// Directory resolves INSEE commune codes against the government commune
// API, with a local file cache so reloads don't hammer the service.
type Directory struct {
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string]Commune
	cacheLock sync.RWMutex
	client    *http.Client
	baseURL   string
}

// NewDirectory creates a directory backed by geo.api.gouv.fr.
func NewDirectory(logger *logrus.Logger, cacheDir string) *Directory {
	os.MkdirAll(cacheDir, 0755)

	d := &Directory{
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string]Commune),
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://geo.api.gouv.fr",
	}

	d.loadCache()

	return d
}

func (d *Directory) loadCache() {
	cacheFile := filepath.Join(d.cacheDir, "commune_cache.json")
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		d.logger.Warnf("Could not load commune cache: %v", err)
		return
	}

	if err := json.Unmarshal(data, &d.cache); err != nil {
		d.logger.Errorf("Failed to parse commune cache: %v", err)
		return
	}

	d.logger.Infof("Loaded %d cached communes", len(d.cache))
}

func (d *Directory) saveCache() {
	d.cacheLock.RLock()
	defer d.cacheLock.RUnlock()

	cacheFile := filepath.Join(d.cacheDir, "commune_cache.json")
	data, err := json.Marshal(d.cache)
	if err != nil {
		d.logger.Errorf("Failed to marshal commune cache: %v", err)
		return
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		d.logger.Errorf("Failed to save commune cache: %v", err)
		return
	}

	d.logger.Info("Saved commune cache to disk")
}

type communeResponse struct {
	Nom             string `json:"nom"`
	Code            string `json:"code"`
	CodeDepartement string `json:"codeDepartement"`
	Region          struct {
		Nom string `json:"nom"`
	} `json:"region"`
	Centre struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat
	} `json:"centre"`
}

// LookupCommune resolves an INSEE code (department + commune, e.g.
// "75101") to its directory entry.
func (d *Directory) LookupCommune(inseeCode string) (*Commune, error) {
	d.cacheLock.RLock()
	if commune, ok := d.cache[inseeCode]; ok {
		d.cacheLock.RUnlock()
		d.logger.WithFields(logrus.Fields{
			"code":   inseeCode,
			"name":   commune.Name,
			"source": "cache",
		}).Debug("Found commune in cache")
		return &commune, nil
	}
	d.cacheLock.RUnlock()

	params := url.Values{
		"fields": []string{"nom,code,codeDepartement,region,centre"},
		"format": []string{"json"},
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/communes/%s", d.baseURL, inseeCode), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.WithError(err).WithField("code", inseeCode).Error("Commune lookup failed")
		return nil, fmt.Errorf("commune lookup failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("commune not found: %s", inseeCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("commune lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	var result communeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}

	commune := Commune{
		Code:           result.Code,
		Name:           result.Nom,
		DepartmentCode: result.CodeDepartement,
		Region:         result.Region.Nom,
	}
	if len(result.Centre.Coordinates) == 2 {
		commune.Longitude = result.Centre.Coordinates[0]
		commune.Latitude = result.Centre.Coordinates[1]
	}

	d.logger.WithFields(logrus.Fields{
		"code":   inseeCode,
		"name":   commune.Name,
		"source": "api",
	}).Info("Resolved commune")

	d.cacheLock.Lock()
	d.cache[inseeCode] = commune
	d.cacheLock.Unlock()

	go d.saveCache()

	return &commune, nil
}

// InseeCode builds the 5-character INSEE code from the department and
// commune codes carried by DVF rows. Overseas departments (971-976)
// already take three digits, leaving two for the commune.
func InseeCode(departmentCode, communeCode int) string {
	if departmentCode > 99 {
		return fmt.Sprintf("%03d%02d", departmentCode, communeCode)
	}
	return fmt.Sprintf("%02d%03d", departmentCode, communeCode)
}
