package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fpi/server/internal/analysis"
	"fpi/server/internal/geo"
	"fpi/server/internal/models"
)

// Database is the read side of the store, used by the serving layer.
// The load side goes through gorm (see loader.go); queries stay on
// database/sql.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// TransactionQuery is the filter set accepted by the query methods.
// Zero values mean "no constraint".
type TransactionQuery struct {
	StartDate    string
	EndDate      string
	Department   int
	Commune      int
	PropertyType int
	Limit        int
}

const transactionFilterClause = `
        (? = '' OR date(date) >= ?)
        AND (? = '' OR date(date) <= ?)
        AND (? = 0 OR department_code = ?)
        AND (? = 0 OR commune_code = ?)
        AND (? = 0 OR property_type = ?)
    `

func (q TransactionQuery) filterArgs() []interface{} {
	return []interface{}{
		q.StartDate, q.StartDate,
		q.EndDate, q.EndDate,
		q.Department, q.Department,
		q.Commune, q.Commune,
		q.PropertyType, q.PropertyType,
	}
}

// GetTransactions returns the transactions matching the query, most
// recent first.
func (d *Database) GetTransactions(q TransactionQuery) ([]models.Transaction, error) {
	query := `
        SELECT
            id,
            date,
            COALESCE(nature, '') as nature,
            price,
            property_type,
            building_area,
            main_rooms,
            land_area,
            postal_code,
            department_code,
            commune_code,
            parcel_id,
            latitude,
            longitude,
            created_at
        FROM transactions
        WHERE ` + transactionFilterClause + `
        ORDER BY date DESC, id DESC
    `
	args := q.filterArgs()

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var latitude, longitude sql.NullFloat64
		var createdAt sql.NullTime
		var date time.Time

		err := rows.Scan(
			&t.ID,
			&date,
			&t.Nature,
			&t.Price,
			&t.PropertyType,
			&t.BuildingArea,
			&t.MainRooms,
			&t.LandArea,
			&t.PostalCode,
			&t.DepartmentCode,
			&t.CommuneCode,
			&t.ParcelID,
			&latitude,
			&longitude,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		t.Date = date
		if createdAt.Valid {
			t.CreatedAt = createdAt.Time
		}
		if latitude.Valid {
			lat := latitude.Float64
			t.Latitude = &lat
		}
		if longitude.Valid {
			lon := longitude.Float64
			t.Longitude = &lon
		}

		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// GetMarketStats aggregates the transactions matching the query.
func (d *Database) GetMarketStats(q TransactionQuery) (models.MarketStats, error) {
	query := `
        SELECT
            COUNT(*) as total_transactions,
            COALESCE(AVG(price), 0) as average_price,
            COALESCE(MIN(price), 0) as min_price,
            COALESCE(MAX(price), 0) as max_price,
            COALESCE(AVG(CAST(price AS FLOAT) / NULLIF(building_area, 0)), 0) as avg_price_per_sqm,
            COALESCE(SUM(CASE WHEN property_type = 1 THEN 1 ELSE 0 END), 0) as house_count,
            COALESCE(SUM(CASE WHEN property_type = 2 THEN 1 ELSE 0 END), 0) as apartment_count
        FROM transactions
        WHERE ` + transactionFilterClause

	var stats models.MarketStats
	err := d.db.QueryRow(query, q.filterArgs()...).Scan(
		&stats.TotalTransactions,
		&stats.AveragePrice,
		&stats.MinPrice,
		&stats.MaxPrice,
		&stats.AvgPricePerSqm,
		&stats.HouseCount,
		&stats.ApartmentCount,
	)
	if err != nil {
		return stats, err
	}

	prices, err := d.getPrices(q)
	if err != nil {
		return stats, err
	}
	stats.MedianPrice = analysis.Median(prices)

	return stats, nil
}

func (d *Database) getPrices(q TransactionQuery) ([]float64, error) {
	query := `
        SELECT price
        FROM transactions
        WHERE ` + transactionFilterClause

	rows, err := d.db.Query(query, q.filterArgs()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var price float64
		if err := rows.Scan(&price); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, rows.Err()
}

// GetDepartmentStats aggregates a single department.
func (d *Database) GetDepartmentStats(code int) (models.DepartmentStats, error) {
	query := `
        SELECT
            department_code,
            COUNT(*) as transaction_count,
            COALESCE(AVG(price), 0) as average_price,
            COALESCE(AVG(CAST(price AS FLOAT) / NULLIF(building_area, 0)), 0) as avg_price_per_sqm
        FROM transactions
        WHERE department_code = ?
        GROUP BY department_code
    `

	var stats models.DepartmentStats
	err := d.db.QueryRow(query, code).Scan(
		&stats.DepartmentCode,
		&stats.TransactionCount,
		&stats.AveragePrice,
		&stats.AvgPricePerSqm,
	)
	if err == sql.ErrNoRows {
		return models.DepartmentStats{DepartmentCode: code}, nil
	}
	return stats, err
}

// GetDepartmentCounts returns per-department aggregates for the whole
// store, busiest departments first.
func (d *Database) GetDepartmentCounts() ([]models.DepartmentStats, error) {
	rows, err := d.db.Query(`
        SELECT
            department_code,
            COUNT(*) as transaction_count,
            COALESCE(AVG(price), 0) as average_price,
            COALESCE(AVG(CAST(price AS FLOAT) / NULLIF(building_area, 0)), 0) as avg_price_per_sqm
        FROM transactions
        GROUP BY department_code
        ORDER BY transaction_count DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.DepartmentStats
	for rows.Next() {
		var stats models.DepartmentStats
		err := rows.Scan(
			&stats.DepartmentCode,
			&stats.TransactionCount,
			&stats.AveragePrice,
			&stats.AvgPricePerSqm,
		)
		if err != nil {
			return nil, err
		}
		counts = append(counts, stats)
	}
	return counts, rows.Err()
}

// GetTrainingTransactions fetches the feature columns used to fit the
// price models. Rows without a usable building area are left out.
func (d *Database) GetTrainingTransactions(limit int) ([]models.Transaction, error) {
	query := `
        SELECT price, property_type, building_area, main_rooms, land_area, department_code
        FROM transactions
        WHERE price > 0 AND building_area > 0
        ORDER BY date DESC
    `
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.Price,
			&t.PropertyType,
			&t.BuildingArea,
			&t.MainRooms,
			&t.LandArea,
			&t.DepartmentCode,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// GetLocation returns a location by its department and commune codes,
// or nil when absent. Commune codes repeat across departments, so both
// are needed.
func (d *Database) GetLocation(departmentCode, communeCode int) (*models.Location, error) {
	var loc models.Location
	var name, region sql.NullString
	var latitude, longitude sql.NullFloat64

	err := d.db.QueryRow(`
        SELECT commune_code, COALESCE(commune_name, ''), department_code,
               COALESCE(region, ''), latitude, longitude
        FROM locations
        WHERE commune_code = ? AND department_code = ?
    `, communeCode, departmentCode).Scan(&loc.CommuneCode, &name, &loc.DepartmentCode, &region, &latitude, &longitude)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if name.Valid {
		loc.CommuneName = name.String
	}
	if region.Valid {
		loc.Region = region.String
	}
	if latitude.Valid {
		lat := latitude.Float64
		loc.Latitude = &lat
	}
	if longitude.Valid {
		lon := longitude.Float64
		loc.Longitude = &lon
	}
	return &loc, nil
}

// UpdateMissingLocationDetails resolves locations loaded without a name
// against the commune directory, in per-batch transactions. Failed
// lookups are marked so they are not retried on every run.
func (d *Database) UpdateMissingLocationDetails(directory *geo.Directory) error {
	var totalCount int
	err := d.db.QueryRow(`
		SELECT COUNT(*)
		FROM locations
		WHERE (commune_name IS NULL OR commune_name = '')
		AND details_fetched = 0
	`).Scan(&totalCount)
	if err != nil {
		return fmt.Errorf("failed to count locations: %v", err)
	}

	if totalCount == 0 {
		return nil
	}

	var processed, failed int
	batchSize := 25

	for processed+failed < totalCount {
		tx, err := d.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %v", err)
		}

		rows, err := tx.Query(`
			SELECT commune_code, department_code
			FROM locations
			WHERE (commune_name IS NULL OR commune_name = '')
			AND details_fetched = 0
			LIMIT ?
		`, batchSize)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to query locations: %v", err)
		}

		type pending struct {
			communeCode    int
			departmentCode int
		}
		var batch []pending
		for rows.Next() {
			var p pending
			if err := rows.Scan(&p.communeCode, &p.departmentCode); err != nil {
				rows.Close()
				tx.Rollback()
				return fmt.Errorf("failed to scan row: %v", err)
			}
			batch = append(batch, p)
		}
		rows.Close()

		if len(batch) == 0 {
			tx.Rollback()
			return fmt.Errorf("no locations processed in batch, possible data inconsistency. Total processed: %d/%d",
				processed+failed, totalCount)
		}

		stmt, err := tx.Prepare(`
			UPDATE locations
			SET commune_name = ?, region = ?, latitude = ?, longitude = ?, details_fetched = 1
			WHERE commune_code = ? AND department_code = ?
		`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to prepare statement: %v", err)
		}

		failedStmt, err := tx.Prepare(`
			UPDATE locations
			SET details_fetched = 1
			WHERE commune_code = ? AND department_code = ?
		`)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to prepare failed statement: %v", err)
		}

		for _, p := range batch {
			commune, err := directory.LookupCommune(geo.InseeCode(p.departmentCode, p.communeCode))
			if err != nil {
				if _, err := failedStmt.Exec(p.communeCode, p.departmentCode); err != nil {
					stmt.Close()
					failedStmt.Close()
					tx.Rollback()
					return fmt.Errorf("failed to mark lookup attempt: %v", err)
				}
				failed++
				continue
			}

			_, err = stmt.Exec(commune.Name, commune.Region, commune.Latitude, commune.Longitude, p.communeCode, p.departmentCode)
			if err != nil {
				stmt.Close()
				failedStmt.Close()
				tx.Rollback()
				return fmt.Errorf("failed to update location: %v", err)
			}
			processed++
		}

		stmt.Close()
		failedStmt.Close()

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %v", err)
		}
	}

	return nil
}

// GetRegions returns all configured regions.
func (d *Database) GetRegions() ([]models.Region, error) {
	rows, err := d.db.Query(`
		SELECT r.id, r.name, GROUP_CONCAT(rd.department_code, ',') as departments
		FROM regions r
		LEFT JOIN region_departments rd ON r.id = rd.region_id
		GROUP BY r.id, r.name
		ORDER BY r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %v", err)
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var region models.Region
		var departmentsStr sql.NullString
		if err := rows.Scan(&region.ID, &region.Name, &departmentsStr); err != nil {
			return nil, fmt.Errorf("failed to scan region: %v", err)
		}
		region.Departments, err = parseDepartmentList(departmentsStr)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating regions: %v", err)
	}

	return regions, nil
}

// GetRegionByName returns a specific region by name, or nil when absent.
func (d *Database) GetRegionByName(name string) (*models.Region, error) {
	var region models.Region
	var departmentsStr sql.NullString

	err := d.db.QueryRow(`
		SELECT r.id, r.name, GROUP_CONCAT(rd.department_code, ',') as departments
		FROM regions r
		LEFT JOIN region_departments rd ON r.id = rd.region_id
		WHERE r.name = ?
		GROUP BY r.id, r.name
	`, name).Scan(&region.ID, &region.Name, &departmentsStr)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query region: %v", err)
	}

	region.Departments, err = parseDepartmentList(departmentsStr)
	if err != nil {
		return nil, err
	}

	return &region, nil
}

// UpdateRegion creates or replaces a region and its department list.
func (d *Database) UpdateRegion(region models.Region) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow("SELECT id FROM regions WHERE name = ?", region.Name).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing region: %v", err)
	}

	var id int64
	if err == sql.ErrNoRows {
		result, err := tx.Exec("INSERT INTO regions (name) VALUES (?)", region.Name)
		if err != nil {
			return fmt.Errorf("failed to insert region: %v", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get region ID: %v", err)
		}
	} else {
		id = existingID
	}

	_, err = tx.Exec("DELETE FROM region_departments WHERE region_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete existing departments: %v", err)
	}

	for _, department := range region.Departments {
		_, err = tx.Exec(`
			INSERT INTO region_departments (region_id, department_code)
			VALUES (?, ?)
		`, id, department)
		if err != nil {
			return fmt.Errorf("failed to insert department: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// DeleteRegion deletes a region and its department list.
func (d *Database) DeleteRegion(name string) error {
	result, err := d.db.Exec("DELETE FROM regions WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete region: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("region not found: %s", name)
	}

	return nil
}

func parseDepartmentList(departments sql.NullString) ([]int, error) {
	if !departments.Valid || departments.String == "" {
		return []int{}, nil
	}

	parts := strings.Split(departments.String, ",")
	codes := make([]int, 0, len(parts))
	for _, part := range parts {
		var code int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &code); err != nil {
			return nil, fmt.Errorf("invalid department code %q: %v", part, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Close() error {
	return d.db.Close()
}
