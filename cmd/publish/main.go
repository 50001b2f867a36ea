package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eldtechnologies/gamelog-relay/internal/models"
	"github.com/eldtechnologies/gamelog-relay/internal/store"
)

func main() {
	redisURL := flag.String("redis", envOr("REDIS_URL", "redis://localhost:6379/0"), "Redis URL")
	prefix := flag.String("prefix", envOr("TOPIC_PREFIX", "gamelog"), "Topic prefix")
	channelID := flag.String("channel", "", "Destination channel ID")
	text := flag.String("text", "", "Log text")
	images := flag.String("images", "", "Comma-separated image paths")
	flag.Parse()

	if *channelID == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "Usage: publish -channel <id> -text <text> [-images a.png,b.png] [-redis <url>] [-prefix <prefix>]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus, err := store.NewRedisBus(ctx, *redisURL, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	entry := models.LogEntry{Text: *text}
	for _, img := range strings.Split(*images, ",") {
		if img = strings.TrimSpace(img); img != "" {
			entry.Images = append(entry.Images, img)
		}
	}

	if err := bus.Publish(ctx, *channelID, entry); err != nil {
		fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Published to %s\n", store.TopicFor(*prefix, *channelID))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
