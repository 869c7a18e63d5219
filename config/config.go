package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port string `env:"SERVER_PORT" envDefault:"5250"`

		// Path to the SQLite database file
		DatabasePath string `env:"DATABASE_PATH" envDefault:"database/dvf.db"`
	}

	// Pipeline configuration
	Pipeline struct {
		// Column separator of the raw extracts
		Delimiter string `env:"PIPELINE_DELIMITER" envDefault:"|"`

		// Fields forming the duplicate equality key, in order
		DedupKey []string `env:"PIPELINE_DEDUP_KEY" envSeparator:"," envDefault:"parcel_id,date,price"`

		// What to do with rows missing optional fields: "drop" or "zero"
		MissingPolicy string `env:"PIPELINE_MISSING_POLICY" envDefault:"drop"`

		// Restrict the load to sale transactions (nature "Vente")
		SalesOnly bool `env:"PIPELINE_SALES_ONLY" envDefault:"true"`

		// Optional "minLon,minLat,maxLon,maxLat" bounding box
		BBox string `env:"PIPELINE_BBOX"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of transactions per load batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"500"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	// Refresh configuration
	Refresh struct {
		// Re-run the pipeline on a schedule when new extracts land
		Enabled bool `env:"REFRESH_ENABLED" envDefault:"false"`

		// Interval between refresh runs in hours
		IntervalHours int `env:"REFRESH_INTERVAL_HOURS" envDefault:"24"`

		// Directory scanned for raw extracts
		RawDir string `env:"REFRESH_RAW_DIR" envDefault:"data/raw"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
