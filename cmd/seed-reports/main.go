// seed-reports submits every image in a directory through the normal ingestion path
// (classification, duplicate detection, storage) as a dedicated seed user.
//
// Usage:
//
//	CLASSIFIER_URL=... GCS_BUCKET=... DB_*=... go run ./cmd/seed-reports -dir ./samples
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmdatafocus/disaster_backend/classifier"
	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/mmdatafocus/disaster_backend/workflow"
	"github.com/sirupsen/logrus"
)

var regions = []string{"India", "USA", "Brazil", "UK", "Germany", "Japan"}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

func main() {
	dir := flag.String("dir", "", "directory of images to submit")
	email := flag.String("email", "seed.user@demo.com", "seed user email")
	password := flag.String("password", "seed_password_123", "seed user password")
	flag.Parse()
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "-dir is required")
		os.Exit(2)
	}

	logger := config.GetLogger()
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	users := models.NewUserStore(db)
	seedUser, _, err := users.UpsertByEmail(ctx, &models.NewUser{
		Name:     "Seed User",
		Email:    *email,
		Password: *password,
		Role:     models.UserRoleUser,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed user: %v\n", err)
		os.Exit(1)
	}

	store := models.NewReportStore(db, config.ReportEventsEnabled())
	images := utils.NewGCSStore()
	defer images.Close()
	ingestion := &workflow.Ingestion{
		Classifier: classifier.NewClientFromEnv(),
		Detector:   workflow.NewDuplicateDetector(store, config.DedupWindow(), config.DedupMinLocationLength()),
		Store:      store,
		Images:     images,
		Users:      users,
		Tasks:      workflow.InlineRunner{Logger: logger},
		Logger:     logger,
	}

	counts := map[workflow.Outcome]int{}
	failed := 0
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		region := regions[rand.Intn(len(regions))]
		result, err := ingestion.Submit(ctx, workflow.Submission{
			UserId:   seedUser.ID,
			FileName: filepath.Base(path),
			Image:    data,
			Note:     "Seeded from " + filepath.Base(path),
			Location: region,
		})
		if err != nil {
			failed++
			logger.WithFields(logrus.Fields{"file": path}).Warn("submit failed: " + err.Error())
			return nil
		}
		counts[result.Outcome]++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk %s: %v\n", *dir, err)
		os.Exit(1)
	}
	fmt.Printf("created=%d duplicate=%d no_disaster=%d failed=%d\n",
		counts[workflow.OutcomeCreated], counts[workflow.OutcomeDuplicate], counts[workflow.OutcomeNoDisaster], failed)
}
