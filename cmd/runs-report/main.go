package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type runRow struct {
	ID               string         `db:"id"`
	Address          string         `db:"address"`
	RadiusKM         float64        `db:"radius_km"`
	SiteType         string         `db:"site_type"`
	SiteCount        int            `db:"site_count"`
	RecommendedCount int            `db:"recommended_count"`
	Categories       pq.StringArray `db:"categories"`
	TopScore         float64        `db:"top_score"`
	CreatedAt        time.Time      `db:"created_at"`
}

const recentRunsQuery = `
	SELECT r.id, r.address, r.radius_km, r.site_type,
	       r.site_count, r.recommended_count, r.categories,
	       COALESCE(MAX(s.score), 0) AS top_score,
	       r.created_at
	FROM sustainasite.site_runs r
	LEFT JOIN sustainasite.site_run_sites s ON s.run_id = r.id
	GROUP BY r.id
	ORDER BY r.created_at DESC
	LIMIT $1`

func main() {
	var (
		dbURL = flag.String("db", os.Getenv("DATABASE_URL"), "DATABASE_URL")
		limit = flag.Int("limit", 20, "number of runs to show")
	)
	flag.Parse()

	if *dbURL == "" || *limit < 1 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := sqlx.Connect("pgx", *dbURL)
	if err != nil {
		log.Fatal("connect: ", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var runs []runRow
	if err := db.SelectContext(ctx, &runs, recentRunsQuery, *limit); err != nil {
		log.Fatal("query runs: ", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tADDRESS\tRADIUS\tTYPE\tSITES\tRECOMMENDED\tTOP SCORE\tCATEGORIES\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%.0f km\t%s\t%d\t%d\t%.3f\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Address, r.RadiusKM, r.SiteType,
			r.SiteCount, r.RecommendedCount, r.TopScore,
			strings.Join(r.Categories, ","), r.ID)
	}
	if err := tw.Flush(); err != nil {
		log.Fatal(err)
	}
	log.Printf("[runs-report] %d runs", len(runs))
}
