package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials mongo at host:port over the shared HTTP transport and
// verifies the connection with a ping before any store is built on it.
func Connect(ctx context.Context, host, port string, httpClient *http.Client) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%s/", host, port)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

func GetRedisClient(host, port string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port),
	})
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}
	return client, nil
}
