package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/noisersup/filestore-api/auth"
	"github.com/noisersup/filestore-api/database"
	"github.com/noisersup/filestore-api/disk"
	l "github.com/noisersup/filestore-api/logger"
	"github.com/noisersup/filestore-api/queue"
	"github.com/noisersup/filestore-api/server"
	"github.com/noisersup/filestore-api/worker"

	"github.com/gomodule/redigo/redis"
	"github.com/sethvargo/go-retry"
)

func main() {
	v := flag.Bool("v", false, "verbose output")
	workers := flag.Int("workers", 1, "number of thumbnail workers")
	flag.Parse()

	dbName := getEnv("DB_NAME", "filestorage")
	user := getEnv("DB_USER", "root")
	host := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "26257")
	redisURL := getEnv("REDIS_URL", "redis://localhost:6379")
	folderPath := getEnv("FOLDER_PATH", "/tmp/files_manager")
	port, err := strconv.Atoi(getEnv("PORT", "5000"))
	if err != nil {
		port = 5000
	}

	log := l.NewLogger(*v)

	ctx := context.Background()

	dbPayload := fmt.Sprintf("postgresql://%s@%s:%s?sslmode=disable", user, host, dbPort)
	log.LogV("Connecting to database %s with payload: %s", dbName, dbPayload)

	db, err := database.ConnectDB(ctx, dbPayload, dbName, log)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer db.Close()

	cache, err := dialRedis(ctx, redisURL, log)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer cache.Close()

	blobs, err := disk.NewStore(folderPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	sessions := auth.NewSessions(cache)
	gate := auth.NewAuth(sessions, db)
	jobs := queue.NewQueue(cache)

	for i := 0; i < *workers; i++ {
		go worker.NewWorker(db, jobs, blobs, log).Run(ctx)
	}
	log.LogV("Started %d thumbnail worker(s)", *workers)

	srv := server.NewServer(log, db, gate, jobs, blobs)
	if err = srv.Listen(port); err != nil {
		log.Fatal(err.Error())
	}
}

// dialRedis builds the shared connection pool and waits, with bounded
// exponential backoff, until the store answers a PING.
func dialRedis(ctx context.Context, url string, log *l.Logger) (*redis.Pool, error) {
	pool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.DialURL(url) },
	}

	backoff := retry.WithMaxRetries(6, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn := pool.Get()
		defer conn.Close()
		if _, err := conn.Do("PING"); err != nil {
			log.LogV("redis not ready yet: %s", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func getEnv(envName, defValue string) string {
	env := os.Getenv(envName)
	if env == "" {
		return defValue
	}
	return env
}
