package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/cache"
	"github.com/meetsync/meetsync/server/internal/syncqueue"
)

const commandTimeout = 10 * time.Second

func runHealth(apiURL string, out io.Writer) error {
	client := resty.New().SetBaseURL(apiURL).SetTimeout(commandTimeout)
	resp, err := client.R().Get("/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, err = fmt.Fprintln(out, resp.String())
	return err
}

func runQueueLen(redisAddr string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	n, err := syncqueue.New(rdb, zerolog.Nop()).Len(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d\n", n)
	return err
}

func runCacheInvalidate(redisAddr, meetingID string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	cache.New(rdb, 0, zerolog.Nop()).Invalidate(ctx, meetingID)
	_, err := fmt.Fprintf(out, "invalidated %s\n", meetingID)
	return err
}
