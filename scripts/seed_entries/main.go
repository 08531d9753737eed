package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"journalbe/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// Seeds dated sample entries for a subject so pagination and trend analysis
// can be exercised by hand.
func main() {
	subject := flag.String("subject", "", "auth subject to seed entries for")
	count := flag.Int("count", 30, "number of entries to create")
	start := flag.String("start", "2023-01-01", "date of the first entry (YYYY-MM-DD)")
	dry := flag.Bool("dry-run", false, "dry-run: don't write to DB")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-subject is required")
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("bad -start date: %v", err)
	}

	gdb := mustDBFromEnv()

	var user models.User
	if err := gdb.Where("auth0_id = ?", *subject).First(&user).Error; err != nil {
		user = models.User{Auth0ID: *subject}
		if *dry {
			fmt.Printf("would create user for subject %s\n", *subject)
		} else if err := gdb.Create(&user).Error; err != nil {
			log.Fatalf("create user: %v", err)
		}
	}

	created := 0
	for i := 0; i < *count; i++ {
		entry := models.Entry{
			UserID:      user.ID,
			Title:       fmt.Sprintf("Seed entry %d", i+1),
			Date:        startDate.AddDate(0, 0, i),
			Description: fmt.Sprintf("Sample journal text for day %d. Felt okay today.", i+1),
		}
		if *dry {
			fmt.Printf("would create entry %q on %s\n", entry.Title, entry.Date.Format("2006-01-02"))
			continue
		}
		if err := gdb.Create(&entry).Error; err != nil {
			log.Printf("warning: create entry %d: %v", i+1, err)
			continue
		}
		created++
	}
	fmt.Printf("seeded %d entries for user id=%d\n", created, user.ID)
}
