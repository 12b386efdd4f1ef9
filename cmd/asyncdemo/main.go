// Command asyncdemo exercises the task/Manager/logging stack end to end:
// a fixed batch of simulated-latency fetches run through a bounded worker
// pool, with structured logging and a final Stats summary, in place of the
// teacher's FrankenPHP-served /api/comments/:id route.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/johanjanssens/asynccore/logging"
	"github.com/johanjanssens/asynccore/task"
)

var commentBodies = []string{
	"id labore ex et quam laborum",
	"quo vero reiciendis velit similique earum",
	"odio adipisci rerum aut animi",
	"alias odio sit",
	"vero eaque aliquid doloribus et culpa",
	"et fugit eligendi deleniti quidem qui sint nihil autem",
	"repellat consequatur praesentium vel minus",
	"et omnis dolorem",
	"provident id voluptas",
	"eaque et deleniti atque tenetur ut quo ut",
}

// comment mirrors the shape the teacher's simulated JSONPlaceholder route
// used to serve over HTTP; here it is the value a Runnable returns.
type comment struct {
	PostID int    `json:"postId"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

func fetchComment(id int) task.RunnableFunc {
	return func(ctx context.Context) (any, error) {
		delay := time.Duration(50+rand.Intn(100)) * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if id < 1 {
			return nil, fmt.Errorf("invalid comment id %d", id)
		}
		return comment{
			PostID: ((id - 1) / 5) + 1,
			ID:     id,
			Name:   commentBodies[(id-1)%len(commentBodies)],
			Email:  fmt.Sprintf("user%d@example.com", id),
			Body:   fmt.Sprintf("Comment body for comment %d", id),
		}, nil
	}
}

// fetchBatch pulls the ambient Manager back out of ctx and launches n
// fetchComment runs against it.
func fetchBatch(ctx context.Context, n int) []task.ID {
	manager := task.ManagerFromContext(ctx)
	ids := make([]task.ID, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, manager.Async(ctx, fetchComment(i)))
	}
	return ids
}

func main() {
	_ = godotenv.Load()

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))

	logPipeline := logging.NewPipeline()
	logPipeline.RegisterSink(logging.NewSlogSink(slog.New(handler), logging.LevelDebug))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	numCPU := runtime.NumCPU()
	numThreads := numCPU * 4
	if v := os.Getenv("FRANKENASYNC_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			numThreads = n
		}
	}

	maxWorkers := numThreads - 2
	workerLimit := maxWorkers
	if v := os.Getenv("FRANKENASYNC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerLimit = n
		}
	}
	if workerLimit > maxWorkers {
		slog.Warn("capping worker limit to thread pool size", "requested", workerLimit, "capped", maxWorkers)
		workerLimit = maxWorkers
	}

	manager := task.NewManager(
		task.WithWorkerLimit(workerLimit),
		task.WithManagerLogger(logPipeline),
	)
	defer manager.Shutdown(context.Background())

	// Stash the Manager on the context, the way the teacher's request
	// handler stashed a per-request Manager, so fetchBatch below can reach
	// it without threading it through every call.
	ctx = task.WithManagerContext(ctx, manager)

	slog.Info("starting asyncdemo batch", "threads", numThreads, "workers", workerLimit, "cpus", numCPU)

	ids := fetchBatch(ctx, 20)

	infos, err := manager.AwaitAll(ctx, ids)
	if err != nil {
		slog.Error("batch did not complete cleanly", "error", err)
	} else {
		for _, info := range infos {
			slog.Debug("fetched comment", "id", info.ID.String(), "value", info.Value)
		}
	}

	stats := manager.Stats()
	slog.Info("batch complete",
		"total", stats.Total,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"canceled", stats.Canceled,
	)
}
