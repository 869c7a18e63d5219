package database

import "fmt"

// RunMigrations creates the tables the serving layer depends on. The
// entity tables match the schema the load side creates through gorm, so
// either entry point can run first.
func (d *Database) RunMigrations() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			commune_code INTEGER,
			department_code INTEGER,
			commune_name TEXT,
			region TEXT,
			latitude REAL,
			longitude REAL,
			details_fetched BOOLEAN DEFAULT 0,
			PRIMARY KEY (commune_code, department_code)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create locations table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS parcels (
			id TEXT PRIMARY KEY,
			department_code INTEGER,
			commune_code INTEGER,
			land_area REAL,
			FOREIGN KEY (commune_code, department_code)
				REFERENCES locations(commune_code, department_code)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create parcels table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date DATETIME,
			nature TEXT,
			price REAL,
			property_type INTEGER,
			building_area REAL,
			main_rooms INTEGER,
			land_area REAL,
			postal_code INTEGER,
			department_code INTEGER,
			commune_code INTEGER,
			parcel_id TEXT REFERENCES parcels(id),
			latitude REAL,
			longitude REAL,
			created_at DATETIME
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transactions table: %v", err)
	}

	// Region configuration tables
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS regions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create regions table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS region_departments (
			region_id INTEGER REFERENCES regions(id) ON DELETE CASCADE,
			department_code INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (region_id, department_code)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create region_departments table: %v", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_department_code ON transactions(department_code);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_commune_code ON transactions(commune_code);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_parcel_id ON transactions(parcel_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_natural
			ON transactions(parcel_id, date, price, property_type, building_area);`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_commune_code ON parcels(commune_code);`,
		`CREATE INDEX IF NOT EXISTS idx_locations_department_code ON locations(department_code);`,
	}
	for _, index := range indexes {
		if _, err := d.db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}
