package geo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func communeServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if r.URL.Path != "/communes/75111" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "nom,code,codeDepartement,region,centre", r.URL.Query().Get("fields"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"nom":             "Paris 11e Arrondissement",
			"code":            "75111",
			"codeDepartement": "75",
			"region":          map[string]string{"nom": "Île-de-France"},
			"centre": map[string]interface{}{
				"coordinates": []float64{2.3802, 48.8594},
			},
		})
	}))
}

func TestLookupCommune(t *testing.T) {
	var requests atomic.Int64
	server := communeServer(t, &requests)
	defer server.Close()

	d := NewDirectory(testLogger(), t.TempDir())
	d.baseURL = server.URL

	commune, err := d.LookupCommune("75111")
	require.NoError(t, err)

	assert.Equal(t, "Paris 11e Arrondissement", commune.Name)
	assert.Equal(t, "75", commune.DepartmentCode)
	assert.Equal(t, "Île-de-France", commune.Region)
	assert.Equal(t, 48.8594, commune.Latitude)
	assert.Equal(t, 2.3802, commune.Longitude)
}

func TestLookupCommuneCachesResults(t *testing.T) {
	var requests atomic.Int64
	server := communeServer(t, &requests)
	defer server.Close()

	d := NewDirectory(testLogger(), t.TempDir())
	d.baseURL = server.URL

	_, err := d.LookupCommune("75111")
	require.NoError(t, err)

	// Second lookup is served from memory
	_, err = d.LookupCommune("75111")
	require.NoError(t, err)
	assert.Equal(t, int64(1), requests.Load())
}

func TestLookupCommuneNotFound(t *testing.T) {
	var requests atomic.Int64
	server := communeServer(t, &requests)
	defer server.Close()

	d := NewDirectory(testLogger(), t.TempDir())
	d.baseURL = server.URL

	_, err := d.LookupCommune("99999")
	assert.ErrorContains(t, err, "commune not found")
}

func TestDirectoryLoadsFileCache(t *testing.T) {
	cacheDir := t.TempDir()
	cached := map[string]Commune{
		"75111": {
			Code:           "75111",
			Name:           "Paris 11e Arrondissement",
			DepartmentCode: "75",
			Region:         "Île-de-France",
		},
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "commune_cache.json"), data, 0644))

	// No server configured: a hit proves the file cache was used
	d := NewDirectory(testLogger(), cacheDir)
	d.baseURL = "http://127.0.0.1:0"

	commune, err := d.LookupCommune("75111")
	require.NoError(t, err)
	assert.Equal(t, "Paris 11e Arrondissement", commune.Name)
}

func TestInseeCode(t *testing.T) {
	assert.Equal(t, "75111", InseeCode(75, 111))
	assert.Equal(t, "01053", InseeCode(1, 53))

	// Overseas departments keep the code at five characters
	assert.Equal(t, "97105", InseeCode(971, 5))
	assert.Equal(t, "97414", InseeCode(974, 14))
}
