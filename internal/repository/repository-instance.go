package repository

import (
	redis_v9 "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories bundles every store binding the service needs. It is built
// once in main and handed to the services explicitly; nothing resolves a
// collection by ambient lookup.
type Repositories struct {
	ShareRepository    *ShareRepository
	ResourceRepository *ResourceRepository
	ProfileRepository  *ProfileRepository
	RedisRepository    *RedisRepo
}

func NewRepositories(db *mongo.Database, redisClient *redis_v9.Client) *Repositories {
	redisRepo := NewRedisRepo(redisClient)
	return &Repositories{
		ShareRepository:    NewShareRepository(db),
		ResourceRepository: NewResourceRepository(db),
		ProfileRepository:  NewProfileRepository(db, redisRepo),
		RedisRepository:    redisRepo,
	}
}
