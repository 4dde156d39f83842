// Command storage-init prepares the Azure storage the page service uses: it
// creates the actions table and the completion queue, then seeds the catalog
// from a YAML file when one is given.
package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
	"github.com/yu23ki14/Footprint-Jibungoto/storage"
)

const queueAlreadyExists = "QueueAlreadyExists"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	actionsTable := os.Getenv("ACTIONS_TABLE")
	if actionsTable == "" {
		actionsTable = "actions"
	}
	completionQueue := os.Getenv("COMPLETION_QUEUE")

	ctx := context.Background()

	if err := createTables(ctx, connStr, []string{actionsTable}); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	if err := createQueues(ctx, connStr, []string{completionQueue}); err != nil {
		log.Fatalf("create queues: %v", err)
	}

	if seed := os.Getenv("ACTIONS_SEED_FILE"); seed != "" {
		n, err := seedActions(ctx, connStr, actionsTable, seed)
		if err != nil {
			log.Fatalf("seed actions: %v", err)
		}
		log.WithFields(log.Fields{"table": actionsTable, "actions": n}).Info("actions seeded")
		if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
			if err := invalidateCatalog(ctx, redisConn); err != nil {
				log.Warnf("invalidate cached catalog: %v", err)
			}
		}
	}

	log.Info("storage init complete")
}

func createTables(ctx context.Context, connStr string, names []string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
			return err
		}
		log.WithField("table", name).Debug("table ready")
	}
	return nil
}

func createQueues(ctx context.Context, connStr string, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
		if err != nil {
			return err
		}
		if _, err := q.Create(ctx, nil); err != nil && !alreadyExists(err, queueAlreadyExists) {
			return err
		}
		log.WithField("queue", name).Debug("queue ready")
	}
	return nil
}

func seedActions(ctx context.Context, connStr, table, path string) (int, error) {
	file, err := storage.LoadFileCatalog(path)
	if err != nil {
		return 0, err
	}
	catalog, err := file.FetchActions(ctx)
	if err != nil {
		return 0, err
	}
	store, err := storage.New(connStr, table, "")
	if err != nil {
		return 0, err
	}
	if err := store.UpsertActions(ctx, catalog); err != nil {
		return 0, err
	}
	n := 0
	for _, actions := range catalog {
		n += len(actions)
	}
	return n, nil
}

// invalidateCatalog drops the catalog copy the page service keeps in Redis so
// the seeded rows are served on the next request.
func invalidateCatalog(ctx context.Context, redisConn string) error {
	rc := redis.NewClient(storage.RedisOptions(redisConn))
	defer rc.Close()
	return storage.NewCache(noCatalog{}, rc, 0).Invalidate(ctx)
}

type noCatalog struct{}

func (noCatalog) FetchActions(context.Context) (domain.Catalog, error) {
	return domain.Catalog{}, nil
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
