package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionBankKey returns the cache key for a bank's full question list (with answers).
func (r *CacheKeyStruct) QuestionBankKey(bank string) string {
	return fmt.Sprintf("questions:%s", bank)
}

// ProctorMonitorChannel returns the Redis PubSub channel for live session transitions.
func (r *CacheKeyStruct) ProctorMonitorChannel() string {
	return "proctor:monitor"
}

var CacheKey = NewCacheKeyStruct()
