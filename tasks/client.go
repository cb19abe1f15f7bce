package tasks

import (
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/redis"
)

type Client struct {
	Tags TagTasks
}

// NewClient is a preferred way for working with task records
func NewClient() (Client, error) {
	tagsRedisClient, err := redis.NewClient(TagsDB)
	if err != nil {
		return Client{}, err
	}
	return Client{
		Tags: TagTasks{client: tagsRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Tags.client.Close()
}
