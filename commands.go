package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rmali83/Glossa/config"
	"github.com/rmali83/Glossa/datastore"
	"github.com/rmali83/Glossa/export"
)

// initDb initializes the database with all necessary tables.
func initDb(c config.Config) {
	var db *sqlx.DB
	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	dbVersion, err := ds.MigrateUp()
	if err != nil {
		fmt.Println(err)
		checkFatal(fmt.Errorf("could not complete database migration, last applied version was %v", dbVersion))
	}

	fmt.Println("Successfully migrated the database to version", dbVersion)
}

// exportProject writes a project's TXT and XLIFF exports into the
// configured export path. The project id is the argument after the
// command name.
func exportProject(c config.Config) {
	args := flag.Args()
	if len(args) < 2 {
		checkFatal(fmt.Errorf("usage: %v export <project-id>", filepath.Base(os.Args[0])))
	}
	projectID, err := strconv.ParseInt(args[1], 10, 64)
	checkFatal(err)

	var db *sqlx.DB
	db, err = sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	project, err := ds.GetProject(projectID)
	checkFatal(err)
	segments, err := ds.GetProjectSegments(projectID)
	checkFatal(err)

	if err := os.MkdirAll(c.Export.Path, 0o755); err != nil {
		checkFatal(err)
	}

	for _, file := range []export.File{
		export.PlainText(project, segments),
		export.XLIFF(project, segments),
	} {
		path := filepath.Join(c.Export.Path, file.Filename)
		if err := os.WriteFile(path, file.Content, 0o644); err != nil {
			checkFatal(err)
		}
		fmt.Println("Exported", path)
	}
}
