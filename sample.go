package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SampleDataset materializes a tiny decision-support dataset under a local
// prefix, one directory of sqlite partitions per table. It exists for smoke
// runs of the driver, not for meaningful measurements.
type SampleDataset struct {
	Rows       int
	Partitions int
	Seed       int64
}

type sampleTable struct {
	name    string
	schema  string
	columns int
}

var sampleCatalog = []sampleTable{
	{
		name: "store_sales",
		schema: `CREATE TABLE store_sales (
			ss_sold_date_sk INTEGER,
			ss_item_sk INTEGER,
			ss_customer_sk INTEGER,
			ss_store_sk INTEGER,
			ss_promo_sk INTEGER,
			ss_quantity INTEGER,
			ss_list_price REAL,
			ss_ext_sales_price REAL
		)`,
		columns: 8,
	},
	{
		name: "item",
		schema: `CREATE TABLE item (
			i_item_sk INTEGER,
			i_item_id TEXT,
			i_brand_id INTEGER,
			i_brand TEXT,
			i_category TEXT,
			i_current_price REAL
		)`,
		columns: 6,
	},
	{
		name: "customer",
		schema: `CREATE TABLE customer (
			c_customer_sk INTEGER,
			c_customer_id TEXT,
			c_first_name TEXT,
			c_last_name TEXT,
			c_birth_year INTEGER
		)`,
		columns: 5,
	},
	{
		name: "date_dim",
		schema: `CREATE TABLE date_dim (
			d_date_sk INTEGER,
			d_date TEXT,
			d_year INTEGER,
			d_moy INTEGER,
			d_dom INTEGER
		)`,
		columns: 5,
	},
	{
		name: "promotion",
		schema: `CREATE TABLE promotion (
			p_promo_sk INTEGER,
			p_promo_id TEXT,
			p_channel_email TEXT,
			p_cost REAL
		)`,
		columns: 4,
	},
	{
		name: "store",
		schema: `CREATE TABLE store (
			s_store_sk INTEGER,
			s_store_id TEXT,
			s_store_name TEXT,
			s_number_employees INTEGER
		)`,
		columns: 4,
	},
}

var (
	sampleCategories = []string{"Books", "Electronics", "Home", "Jewelry", "Sports"}
	sampleFirstNames = []string{"James", "Mary", "Robert", "Linda", "David", "Susan"}
	sampleLastNames  = []string{"Smith", "Johnson", "Brown", "Davis", "Miller", "Wilson"}
	sampleStoreNames = []string{"ought", "able", "ation", "eing", "bar"}
)

func (d *SampleDataset) Tables() []string {
	tables := make([]string, len(sampleCatalog))
	for i, table := range sampleCatalog {
		tables[i] = table.name
	}
	return tables
}

// Load builds the dataset under prefix unless it already exists.
func (d *SampleDataset) Load(prefix string) error {
	if _, err := os.Stat(prefix); err == nil {
		Logger.Infof("sample dataset at %v already exists, skip initialization", prefix)
		return nil
	}
	rng := rand.New(rand.NewSource(d.Seed))
	for _, table := range sampleCatalog {
		if err := d.loadTable(rng, prefix, table); err != nil {
			return fmt.Errorf("failed to build sample table %v: %w", table.name, err)
		}
	}
	Logger.Infof("built sample dataset at %v: %v tables, %v rows x %v partitions each",
		prefix, len(sampleCatalog), max(d.Rows, 1), max(d.Partitions, 1))
	return nil
}

func (d *SampleDataset) loadTable(rng *rand.Rand, prefix string, table sampleTable) error {
	dir := filepath.Join(prefix, table.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rows, partitions := max(d.Rows, 1), max(d.Partitions, 1)
	for i := 0; i < partitions; i++ {
		path := filepath.Join(dir, fmt.Sprintf("part-%05d%v", i, partitionSuffix))
		if err := d.loadPartition(rng, path, table, i*rows, rows); err != nil {
			return err
		}
	}
	return nil
}

func (d *SampleDataset) loadPartition(rng *rand.Rand, path string, table sampleTable, base int, rows int) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(table.schema); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	marks := make([]string, table.columns)
	for i := range marks {
		marks[i] = "?"
	}
	placeholders := strings.Join(marks, ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %v VALUES (%v)", table.name, placeholders))
	if err != nil {
		return err
	}
	for row := 0; row < rows; row++ {
		if _, err := stmt.Exec(sampleRow(rng, table.name, base+row+1)...); err != nil {
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

func sampleRow(rng *rand.Rand, table string, sk int) []any {
	switch table {
	case "store_sales":
		quantity := 1 + rng.Intn(100)
		price := float64(99+rng.Intn(9901)) / 100
		return []any{
			2450815 + rng.Intn(1826),
			1 + rng.Intn(1000),
			1 + rng.Intn(5000),
			1 + rng.Intn(10),
			1 + rng.Intn(50),
			quantity,
			price,
			price * float64(quantity),
		}
	case "item":
		return []any{
			sk,
			fmt.Sprintf("AAAAAAAA%08d", sk),
			1 + rng.Intn(1000),
			fmt.Sprintf("Brand#%v", 1+rng.Intn(10)),
			sampleCategories[rng.Intn(len(sampleCategories))],
			float64(99+rng.Intn(9901)) / 100,
		}
	case "customer":
		return []any{
			sk,
			fmt.Sprintf("AAAAAAAA%08d", sk),
			sampleFirstNames[rng.Intn(len(sampleFirstNames))],
			sampleLastNames[rng.Intn(len(sampleLastNames))],
			1930 + rng.Intn(60),
		}
	case "date_dim":
		date := time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, sk-1)
		return []any{
			2450815 + sk - 1,
			date.Format("2006-01-02"),
			date.Year(),
			int(date.Month()),
			date.Day(),
		}
	case "promotion":
		channel := "N"
		if rng.Intn(2) == 1 {
			channel = "Y"
		}
		return []any{
			sk,
			fmt.Sprintf("AAAAAAAA%08d", sk),
			channel,
			float64(1000 + rng.Intn(9000)),
		}
	case "store":
		return []any{
			sk,
			fmt.Sprintf("AAAAAAAA%08d", sk),
			sampleStoreNames[rng.Intn(len(sampleStoreNames))],
			200 + rng.Intn(100),
		}
	}
	return nil
}
