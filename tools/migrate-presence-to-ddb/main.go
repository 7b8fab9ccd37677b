package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	ddbpkg "github.com/yashrajoria/distributor-backend/pkg/dynamodb"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/database"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
)

// Copies presence records from the Mongo user_sessions collection into the
// DynamoDB presence table so a deployment can switch PRESENCE_STORE.
func main() {
	var mongoURI, dbName, table string
	var dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_URI"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB"), "MongoDB database name")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRESENCE"), "DynamoDB table name")
	flag.BoolVar(&dryRun, "dry-run", false, "read and count without writing")
	flag.Parse()

	log := logger.Initialize("development")
	defer func() { _ = log.Sync() }()

	if mongoURI == "" {
		log.Fatal("MONGO_URI must be set or provided via -mongo")
	}
	if dbName == "" {
		dbName = "distributor"
	}
	if table == "" {
		table = "UserSessions"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, mongoURI, dbName, log)
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	target := repository.NewDynamoSessionRepository(ddbpkg.NewClientFromConfig(awsCfg), table)

	sessions, err := repository.NewSessionRepository(db).List(ctx)
	if err != nil {
		log.Fatal("read sessions", zap.Error(err))
	}

	var migrated, failed int
	for _, s := range sessions {
		if dryRun {
			migrated++
			continue
		}
		if err := target.Put(ctx, s); err != nil {
			failed++
			log.Warn("failed to write session", zap.String("username", s.Username), zap.Error(err))
			continue
		}
		migrated++
		if migrated%100 == 0 {
			log.Info("progress", zap.Int("migrated", migrated))
		}
	}
	fmt.Printf("Migration complete. migrated=%d failed=%d dry_run=%t\n", migrated, failed, dryRun)
	if failed > 0 {
		os.Exit(1)
	}
}
