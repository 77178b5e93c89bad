package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed rag.sql
var ragSQL string

// Function list for verification
var RagFunctions = []string{
	"init_rag",
	"upsert_chunk",
	"delete_chunks_by_source",
	"select_chunks_by_similarity",
	"count_chunks",
	"upsert_source_state",
	"select_source_state",
	"set_meta",
	"get_meta",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadRagSql loads the vector store SQL functions
func LoadRagSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, RagFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing rag functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(ragSQL)
	if err != nil {
		return fmt.Errorf("error executing rag SQL: %w", err)
	}

	exist, err := checkFunctions(db, RagFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL rag functions loaded successfully")
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
